package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/nkashama/tathmini/core/user"
	inmemdb "github.com/nkashama/tathmini/storage/database/inmem"
	testutil "github.com/nkashama/tathmini/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)

	return &commandLine{
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME argument")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Prof Awe", "awe@monmouth.edu", "mdr", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@monmouth.edu"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@monmouth.edu"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByEmail(context.Background(), usr.Email)
				if err != nil {
					t.Fatalf("GetUserByEmail() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3tPa$$"), nil }

	t.Run("creates a new account", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addteacher", "-email", "New@Monmouth.edu", "-name", "Prof New"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByEmail(context.Background(), "new@monmouth.edu")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed, %v", err)
		}
		if !usr.IsActive || usr.Name != "Prof New" {
			t.Errorf("addTeacher() created %+v; want an active Prof New", usr)
		}
		if err := usr.CheckPassword("s3cr3tPa$$"); err != nil {
			t.Errorf("addTeacher() password not set: %v", err)
		}
	})

	t.Run("reactivates an existing account", func(t *testing.T) {
		testutil.CreateUser(t, usrRepo, "Prof Gone", "gone@monmouth.edu", "old", false)

		if err := cli.run([]string{"admin", "addteacher", "-email", "gone@monmouth.edu", "-name", "Prof Back"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByEmail(context.Background(), "gone@monmouth.edu")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed, %v", err)
		}
		if !usr.IsActive || usr.Name != "Prof Back" {
			t.Errorf("addTeacher() left %+v; want an active Prof Back", usr)
		}
	})
}
