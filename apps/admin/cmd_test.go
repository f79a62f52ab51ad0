package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/classifier"
	"github.com/rapor-tpq/rapor/core/user"
	"github.com/rapor-tpq/rapor/storage/database"
	sqlxrepos "github.com/rapor-tpq/rapor/storage/database/sqlx"
	"github.com/rapor-tpq/rapor/tests"
)

func setup(t *testing.T) (*commandLine, user.Repository, *bytes.Buffer) {
	db := testutil.PrepareDB(t)
	out := new(bytes.Buffer)

	cli := newCommandLine(core.NewTestConfig(), testutil.NewLogger(), func(*core.Config) (*sqlx.DB, error) {
		return nil, errors.New("unexpected open")
	})
	cli.db = db
	cli.out = out
	return cli, sqlxrepos.NewUserRepository(db), out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var ran []string
	orig := gooseRunFunc
	gooseRunFunc = func(command string, db *sqlx.DB, engine string, args ...string) error {
		if engine != database.EngineSqlite {
			return fmt.Errorf("unexpected engine %q", engine)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = orig })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(tt.args))
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "reset", "status", "version", "fix"}, ran)
}

func Test_commandLine_migrateEmbedded(t *testing.T) {
	cli, _, _ := setup(t)
	require.NoError(t, cli.run([]string{"migrate", "status"}))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo, _ := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", user.RoleParent, true)

	tests := []cliTest{
		{name: "no flag", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errEmptyPassword},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, extra: "lmao"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)

			err := cli.run(tt.args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}
			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, usrRepo, _ := setup(t)
	ctx := context.Background()

	mockPassword(t, "s3cret")
	checkErr(t, cliTest{wantErr: errUsernameOrEmail}, cli.run([]string{"adduser", "--name", "Nobody"}))

	require.NoError(t, cli.run([]string{"adduser", "--username", " Admin ", "--email", "admin@tpq.id", "--admin"}))
	admin, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Name)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.NoError(t, admin.CheckPassword("s3cret"))

	require.NoError(t, cli.run([]string{"adduser", "--email", "siti@example.com", "--name", "Siti"}))
	siti, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "siti@example.com"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleParent, siti.Role)

	// an existing user is reactivated and keeps the admin role
	admin.IsActive = false
	_, err = usrRepo.UpdateUser(ctx, admin)
	require.NoError(t, err)

	mockPassword(t, "n3wer")
	require.NoError(t, cli.run([]string{"adduser", "--username", "admin"}))
	admin, err = usrRepo.GetUser(ctx, user.GetFilter{ID: admin.ID})
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.NoError(t, admin.CheckPassword("n3wer"))
}

func Test_commandLine_modelPipeline(t *testing.T) {
	cli, _, out := setup(t)
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	model := filepath.Join(dir, "model", "student_model.json")

	require.NoError(t, cli.run([]string{"gendataset", "--rows", "300", "--seed", "7", "-o", data}))
	assert.Contains(t, out.String(), "300 rows written")

	out.Reset()
	require.NoError(t, cli.run([]string{"checkdataset", data}))
	assert.Contains(t, out.String(), "Shape: (300, 17)")
	assert.Contains(t, out.String(), "No missing values found!")
	assert.Contains(t, out.String(), "Scorer agreement:")

	out.Reset()
	require.NoError(t, cli.run([]string{"train", "--data", data, "--out", model, "--trees", "15", "--relabel"}))
	assert.Contains(t, out.String(), "Test accuracy:")
	assert.FileExists(t, model)
	assert.FileExists(t, classifier.ManifestPath(model))

	out.Reset()
	require.NoError(t, cli.run([]string{"evaluate", "--data", data, "-m", model}))
	assert.Contains(t, out.String(), "Confusion matrix")

	out.Reset()
	require.NoError(t, cli.run([]string{"testmodel", "-m", model}))
	assert.Contains(t, out.String(), "cases match")
	assert.Contains(t, out.String(), "Feature importance")
}

func Test_commandLine_datasetErrors(t *testing.T) {
	cli, _, _ := setup(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Al_Quran_Iqro,Kategori\n80,BSH\n"), 0o644))

	err := cli.run([]string{"checkdataset", bad})
	var sm *classifier.SchemaMismatchError
	require.True(t, errors.As(err, &sm), "got %v", err)
	assert.NotContains(t, sm.Missing, "Al_Quran_Iqro")
	assert.Contains(t, sm.Missing, "Bahasa_Arab")

	err = cli.run([]string{"evaluate", "--data", bad, "-m", filepath.Join(dir, "missing.json")})
	assert.Equal(t, classifier.ErrModelUnavailable, errors.Cause(err))
}
