package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/user"
	appfs "github.com/rapor-tpq/rapor/fs"
	emailsvc "github.com/rapor-tpq/rapor/services/email"
	sqlxrepos "github.com/rapor-tpq/rapor/storage/database/sqlx"
	"github.com/rapor-tpq/rapor/tests"
)

func tokenFieldError(t *testing.T, err error) string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "token", vErr.Fields[0].Field)
	return vErr.Fields[0].Error
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.FrontendURL = "https://rapor.example"
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf))

	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger())
	svc := user.NewService(repo)
	pr := user.NewPasswordReset(conf, svc, mailSvc)

	siti := testutil.CreateUser(t, repo, "Siti", "siti", "siti@example.com", "Old#Pass1", user.RoleParent, true)
	testutil.CreateUser(t, repo, "Budi", "budi", "budi@example.com", "", user.RoleParent, false)

	// unknown and inactive users get no email
	assert.Equal(t, user.ErrNotFound, errors.Cause(pr.Request(ctx, "nobody@example.com")))
	assert.Equal(t, user.ErrNotFound, errors.Cause(pr.Request(ctx, "budi@example.com")))
	assert.Equal(t, user.ErrNotFound, errors.Cause(pr.Request(ctx, "  ")))
	assert.Empty(t, mailSvc.SentMessages())

	require.NoError(t, pr.Request(ctx, " SITI@example.com "))
	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "siti@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "https://rapor.example/password-reset/")

	data, ok := sent[0].TemplateData.(user.PasswordResetData)
	require.True(t, ok)
	parts := strings.Split(strings.TrimPrefix(data.URL, "https://rapor.example/password-reset/"), "/")
	require.Len(t, parts, 2)
	uid, token := parts[0], parts[1]

	reset := func(uid, token string) error {
		return pr.Confirm(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "N3w#Secret", PasswordConfirm: "N3w#Secret"})
	}

	assert.Equal(t, user.ErrInvalidToken.Error(), tokenFieldError(t, reset("!!", token)))
	assert.Equal(t, user.ErrInvalidToken.Error(), tokenFieldError(t, reset(user.EncodeUID(user.User{ID: 999}), token)))
	assert.Equal(t, user.ErrInvalidToken.Error(), tokenFieldError(t, reset(uid, token+"x")))

	require.NoError(t, reset(uid, token))
	got, err := repo.GetUser(ctx, user.GetFilter{ID: siti.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("N3w#Secret"))

	// the link is single use: the password hash changed
	assert.Equal(t, user.ErrInvalidToken.Error(), tokenFieldError(t, reset(uid, token)))

	// a login since the request invalidates the link
	require.NoError(t, pr.Request(ctx, "siti@example.com"))
	data = mailSvc.SentMessages()[1].TemplateData.(user.PasswordResetData)
	parts = strings.Split(strings.TrimPrefix(data.URL, "https://rapor.example/password-reset/"), "/")
	_, err = svc.SetLastLogin(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, user.ErrInvalidToken.Error(), tokenFieldError(t, reset(parts[0], parts[1])))
}

func TestResetUserPassword_Validate(t *testing.T) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	translate := func(err error) map[string]string {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return nil
		}
		return core.TranslateErrors(vErrs, translator)
	}

	rp := user.ResetUserPassword{}
	assert.Equal(t, map[string]string{
		"uid":              "this field is required",
		"token":            "this field is required",
		"password":         "password must contain at least 8 characters",
		"password_confirm": "this field is required",
	}, translate(rp.Validate(validate)))

	rp = user.ResetUserPassword{UID: "MQ", Token: "t-s", Password: "abcdefgh", PasswordConfirm: "abcdefgh"}
	assert.Equal(t, map[string]string{
		"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
	}, translate(rp.Validate(validate)))

	rp = user.ResetUserPassword{UID: "MQ", Token: "t-s", Password: "N3w#Secret", PasswordConfirm: "N3w#Secret"}
	assert.NoError(t, rp.Validate(validate))
}
