package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core/user"
	dummydb "github.com/trezcool/karo/storage/database/dummy"
	"github.com/trezcool/karo/testutil"
)

type testCLI struct {
	*commandLine
	db  *dummydb.DB
	out *bytes.Buffer
}

func setup(t *testing.T) *testCLI {
	db := dummydb.Open()
	out := new(bytes.Buffer)

	origRead := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origRead })

	return &testCLI{
		commandLine: &commandLine{
			usrRepo:     dummydb.NewUserRepository(db),
			studentRepo: dummydb.NewStudentRepository(db),
			out:         out,
		},
		db:  db,
		out: out,
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
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
	cli := setup(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "guardians", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-username", "ama"}, wantErr: errHelp},
		{name: "email but no name", args: []string{"adduser", "-email", "ama@test.gh"}, pwd: "Str0ng.Pass!", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "ama@test.gh", "-name", "Ama"}, wantErr: errHelp},
		{name: "staff", args: []string{"adduser", "-email", " AMA@test.gh", "-name", "Ama Mensah "}, pwd: "Str0ng.Pass!"},
		{name: "admin", args: []string{"adduser", "-email", "kofi@test.gh", "-name", "Kofi", "-admin"}, pwd: "Adm1n.Pass!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ama, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "ama@test.gh"})
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", ama.FullName)
	assert.Equal(t, user.RoleStaff, ama.Role)
	assert.True(t, ama.IsActive)
	assert.NoError(t, ama.CheckPassword("Str0ng.Pass!"))

	kofi, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "kofi@test.gh"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, kofi.Role)

	t.Run("existing user", func(t *testing.T) {
		gone := testutil.CreateUser(t, cli.usrRepo, "Yaw", "yaw@test.gh", testutil.Password, user.RoleStaff, false)
		mockPassword("N3w.Secret!")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "yaw@test.gh", "-name", "Yaw Boateng", "-admin"}))

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: gone.ID})
		require.NoError(t, err)
		assert.Equal(t, "Yaw Boateng", usr.FullName)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("N3w.Secret!"))

		users, err := cli.usrRepo.QueryUsers(ctx, user.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "Ama", "ama@test.gh", testutil.Password, user.RoleStaff, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.gh"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AMA@test.gh"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}
			refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshedUsr.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_qrCodes(t *testing.T) {
	cli := setup(t)
	classRepo := dummydb.NewClassRepository(cli.db)
	jhs := testutil.CreateClass(t, classRepo, "JHS 1")
	basic := testutil.CreateClass(t, classRepo, "Basic 4")
	testutil.CreateStudent(t, cli.studentRepo, "STU-1001", "Kwesi Appiah", jhs)
	testutil.CreateStudent(t, cli.studentRepo, "STU/1002", "Efua Mensah", basic)

	t.Run("no out", func(t *testing.T) {
		assert.Equal(t, errHelp, cli.run([]string{"admin", "qrcodes"}))
	})

	t.Run("all", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "qr")
		require.NoError(t, cli.run([]string{"admin", "qrcodes", "-out", dir, "-size", "128"}))

		f, err := os.Open(filepath.Join(dir, "STU-1001.png"))
		require.NoError(t, err)
		defer f.Close()
		img, err := png.Decode(f)
		require.NoError(t, err)
		assert.Equal(t, 128, img.Bounds().Dx())

		assert.FileExists(t, filepath.Join(dir, "STU_1002.png"))
	})

	t.Run("class", func(t *testing.T) {
		dir := t.TempDir()
		cli.out.Reset()
		require.NoError(t, cli.run([]string{"admin", "qrcodes", "-out", dir, "-class", strconv.Itoa(basic.ID)}))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "STU_1002.png", entries[0].Name())
		assert.Contains(t, cli.out.String(), "1 QR code(s) written")
	})
}
