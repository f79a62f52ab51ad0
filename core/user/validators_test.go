package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapor-tpq/rapor/core"
	appfs "github.com/rapor-tpq/rapor/fs"
)

func newTestValidator(t *testing.T) (*validator.Validate, func(error) map[string]string) {
	t.Helper()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	InitValidators(validate, translator)
	require.NoError(t, LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsPath))

	translate := func(err error) map[string]string {
		if err == nil {
			return nil
		}
		errs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "got %T: %v", err, err)
		return core.TranslateErrors(errs, translator)
	}
	return validate, translate
}

func TestNewUser_Validate(t *testing.T) {
	validate, translate := newTestValidator(t)

	valid := func() NewUser {
		return NewUser{
			Name:            "Siti Aminah",
			Username:        "siti",
			Email:           "siti@tpq.id",
			Password:        "Kq7#vWz2",
			PasswordConfirm: "Kq7#vWz2",
			Role:            RoleParent,
		}
	}

	tests := []struct {
		name   string
		mutate func(nu *NewUser)
		want   map[string]string
	}{
		{name: "valid", mutate: func(nu *NewUser) {}},
		{name: "valid without email", mutate: func(nu *NewUser) { nu.Email = "" }},
		{
			name:   "name required",
			mutate: func(nu *NewUser) { nu.Name = "   " },
			want:   map[string]string{"name": "this field is required"},
		},
		{
			name:   "unknown role",
			mutate: func(nu *NewUser) { nu.Role = "teacher" },
			want:   map[string]string{"role": "invalid role"},
		},
		{
			name:   "username or email",
			mutate: func(nu *NewUser) { nu.Username, nu.Email = "", "" },
			want: map[string]string{
				"username": usernameOrEmailText,
				"email":    usernameOrEmailText,
			},
		},
		{
			name:   "bad username",
			mutate: func(nu *NewUser) { nu.Username = "siti-aminah" },
			want:   map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name: "password mismatch",
			mutate: func(nu *NewUser) {
				nu.PasswordConfirm = "Kq7#vWz3"
			},
			want: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
		{
			name:   "too short",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Aa1#", "Aa1#" },
			want:   map[string]string{"password": pwdMinLenText},
		},
		{
			name:   "whitespace",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Kq7# vWz2", "Kq7# vWz2" },
			want:   map[string]string{"password": pwdNoSpaceText},
		},
		{
			name:   "all numeric",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "20241234", "20241234" },
			want:   map[string]string{"password": pwdNotAllNumText},
		},
		{
			name:   "complexity",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "kq7vwz2abc", "kq7vwz2abc" },
			want:   map[string]string{"password": pwdComplexityText},
		},
		{
			name:   "similar to username",
			mutate: func(nu *NewUser) { nu.Username = "aminah_2024"; nu.Password, nu.PasswordConfirm = "Aminah_2024", "Aminah_2024" },
			want:   map[string]string{"password": pwdAttrSimText},
		},
		{
			name:   "common",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "P@ssw0rd", "P@ssw0rd" },
			want:   map[string]string{"password": pwdNoCommonText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.mutate(&nu)
			got := translate(nu.Validate(validate))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUser_Clean(t *testing.T) {
	nu := NewUser{Name: "  Siti ", Username: " SITI ", Email: " Siti@TPQ.id", Role: " Parent"}
	nu.Clean()
	assert.Equal(t, NewUser{Name: "Siti", Username: "siti", Email: "siti@tpq.id", Role: RoleParent}, nu)
}

func TestUpdateUser_Validate(t *testing.T) {
	validate, translate := newTestValidator(t)
	orig := User{ID: 3, Name: "Siti", Username: "siti", Email: "siti@tpq.id", Role: RoleParent}

	uu := UpdateUser{Name: "  "}
	require.NoError(t, uu.Validate(orig, validate))
	assert.Equal(t, "Siti", uu.Name)
	assert.Equal(t, "siti", uu.Username)
	assert.Equal(t, "siti@tpq.id", uu.Email)
	assert.Equal(t, RoleParent, uu.Role)

	uu = UpdateUser{Role: "Admin", Email: "NEW@tpq.id"}
	require.NoError(t, uu.Validate(orig, validate))
	assert.Equal(t, RoleAdmin, uu.Role)
	assert.Equal(t, "new@tpq.id", uu.Email)

	uu = UpdateUser{Password: "Kq7#vWz2"}
	assert.Equal(t,
		map[string]string{"password_confirm": "this field is required"},
		translate(uu.Validate(orig, validate)))

	uu = UpdateUser{Password: "12345678", PasswordConfirm: "12345678"}
	assert.Equal(t, map[string]string{"password": pwdNotAllNumText}, translate(uu.Validate(orig, validate)))
}

func TestUser_Password(t *testing.T) {
	var usr User
	require.NoError(t, usr.SetPassword("Kq7#vWz2"))
	assert.NotEmpty(t, usr.PasswordHash)
	assert.NoError(t, usr.CheckPassword("Kq7#vWz2"))
	assert.Error(t, usr.CheckPassword("kq7#vWz2"))
}

func TestRoles(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleParent))
	assert.False(t, ValidRole("admin:"))
	assert.False(t, ValidRole(""))

	admin := User{Role: RoleAdmin}
	parent := User{Role: RoleParent}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsParent())
	assert.True(t, parent.IsParent())
	assert.False(t, parent.IsAdmin())
	assert.Len(t, Roles, len(AllRoles))
}

