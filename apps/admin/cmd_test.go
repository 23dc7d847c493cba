package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
	cachesvc "github.com/trezcool/dojo/services/cache"
	emailsvc "github.com/trezcool/dojo/services/email"
	inmemdb "github.com/trezcool/dojo/storage/database/inmem"
	testutil "github.com/trezcool/dojo/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	logger := testutil.NopLogger()
	conf := *core.Conf
	conf.TestMode = true

	db := inmemdb.Open()
	roleSvc := role.NewService(inmemdb.NewRoleRepository(db), cachesvc.NewMemoryCache(), &conf, logger)
	usrRepo := inmemdb.NewUserRepository(db)
	out := new(bytes.Buffer)

	return &commandLine{
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, roleSvc, emailsvc.NewConsoleServiceMock(&conf, logger), &conf, logger),
		roleSvc: roleSvc,
		out:     out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITest(t *testing.T, cli *commandLine, tt cliTest) error {
	t.Helper()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate without subcommand", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			runCLITest(t, cli, tt)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
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
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, tt)
		})
	}
}

func Test_commandLine_bootstrap(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	// twice: bootstrapping is idempotent
	for i := 0; i < 2; i++ {
		require.NoError(t, cli.run([]string{"admin", "bootstrap"}))
	}
	for _, name := range []string{role.Administrator, role.Instructor, role.Student} {
		_, err := cli.roleSvc.GetByName(ctx, name)
		assert.NoError(t, err, name)
	}
	catalog, err := cli.roleSvc.Catalog(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, catalog)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, cli.usrRepo, "Old", "Name", "kreese@dojo.test", "", user.StatusSuspended)

	type extra struct {
		pwd string
	}
	tests := []struct {
		cliTest
		email     string
		wantName  string
		wantRoles []string
	}{
		{cliTest: cliTest{name: "no args", args: []string{"adduser"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "missing names", args: []string{"adduser", "-email", "a@dojo.test"}, wantErr: errHelp}},
		{
			cliTest: cliTest{name: "no password", wantErr: errHelp, args: []string{
				"adduser", "-email", "a@dojo.test", "-first-name", "Daniel", "-surname", "LaRusso",
			}},
		},
		{
			cliTest: cliTest{name: "new student", extra: extra{pwd: "wax-on"}, args: []string{
				"adduser", "-email", " Daniel@Dojo.test ", "-first-name", "Daniel", "-surname", "LaRusso",
			}},
			email:     "daniel@dojo.test",
			wantName:  "Daniel LaRusso",
			wantRoles: []string{role.Student},
		},
		{
			cliTest: cliTest{name: "new admin", extra: extra{pwd: "wax-off"}, args: []string{
				"adduser", "-email", "miyagi@dojo.test", "-first-name", "Keisuke", "-surname", "Miyagi", "-admin",
			}},
			email:     "miyagi@dojo.test",
			wantName:  "Keisuke Miyagi",
			wantRoles: []string{role.Administrator},
		},
		{
			cliTest: cliTest{name: "existing user is reactivated", extra: extra{pwd: "cobra-kai"}, args: []string{
				"adduser", "-email", existing.Email, "-first-name", "John", "-surname", "Kreese", "-admin",
			}},
			email:     existing.Email,
			wantName:  "John Kreese",
			wantRoles: []string{role.Administrator},
		},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := runCLITest(t, cli, tt.cliTest); err != nil {
				return
			}
			usr, err := cli.usrRepo.GetUserByEmail(ctx, tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, usr.Name())
			assert.True(t, usr.IsActive())
			assert.NoError(t, usr.CheckPassword(tt.extra.(extra).pwd))
			for _, name := range tt.wantRoles {
				assert.True(t, usr.HasRole(name), "missing role %s", name)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "Johnny", "Lawrence", "johnny@dojo.test", "strike-first", user.StatusActive)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@dojo.test"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "no-mercy"}},
		{name: "reset is case insensitive", args: []string{"resetpassword", "-email", "JOHNNY@dojo.test"}, extra: extra{pwd: "eagle-fang"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := runCLITest(t, cli, tt); err != nil {
				return
			}
			refreshed, err := cli.usrRepo.GetUserByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
		})
	}
}

func Test_commandLine_users(t *testing.T) {
	cli, out := setup(t)

	for i := 0; i < 5; i++ {
		testutil.CreateUser(t, cli.usrRepo, "Student", strconv.Itoa(i), fmt.Sprintf("student%d@dojo.test", i), "", user.StatusActive)
	}
	testutil.CreateUser(t, cli.usrRepo, "Gone", "Student", "gone@dojo.test", "", user.StatusInactive)

	tests := []struct {
		name      string
		args      []string
		wantCount string
		want      []string
		notWant   []string
	}{
		{
			name:      "all users across pages",
			args:      []string{"users", "-page-size", "2"},
			wantCount: "6 user(s)",
			want:      []string{"student0@dojo.test", "student4@dojo.test", "gone@dojo.test"},
		},
		{
			name:      "by status",
			args:      []string{"users", "-status", "inactive"},
			wantCount: "1 user(s)",
			want:      []string{"gone@dojo.test"},
			notWant:   []string{"student0@dojo.test"},
		},
		{
			name:      "by search",
			args:      []string{"users", "-search", "student3"},
			wantCount: "1 user(s)",
			want:      []string{"student3@dojo.test"},
			notWant:   []string{"gone@dojo.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			require.NoError(t, cli.run(append([]string{"admin"}, tt.args...)))
			got := out.String()
			assert.Contains(t, got, tt.wantCount)
			for _, s := range tt.want {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func Test_userListState(t *testing.T) {
	ps := userListState(" Inactive ", "", 2)
	assert.Equal(t, map[string]string{"status": " Inactive "}, ps.Filters())
	assert.Equal(t, user.QueryFilter{Status: "inactive"}, userFilter(ps))

	ps.SetCount(5)
	require.True(t, ps.Next())
	assert.Equal(t, 2, ps.Page())

	// a filter change goes back to the first page
	ps.SetFilter("search", "daniel")
	assert.Equal(t, 1, ps.Page())
	assert.Equal(t, user.QueryFilter{Status: "inactive", Search: "daniel"}, userFilter(ps))
}
