package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	usrSvc  user.Service
	roleSvc *role.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, up-to, down, down-to, redo, reset, status, version)")
	fmt.Fprintln(cli.out, "  bootstrap - sync the privilege catalog and the built-in roles")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -first-name NAME -surname NAME [-admin] - create or update an active user")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  users [-status STATUS] [-search TEXT] [-page-size N] - list users")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserFirstName := addUserCmd.String("first-name", "", "The user's first name.")
	addUserSurname := addUserCmd.String("surname", "", "The user's surname.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user the Administrator role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	usersCmd := flag.NewFlagSet("users", flag.ContinueOnError)
	usersStatus := usersCmd.String("status", "", "Only list users with this status.")
	usersSearch := usersCmd.String("search", "", "Only list users whose name or email match.")
	usersPageSize := usersCmd.Int("page-size", 50, "Number of users fetched at once.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, usersCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "bootstrap":
		return cli.bootstrap()

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserFirstName == "" || *addUserSurname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserFirstName, *addUserSurname, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "users":
		if err := usersCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listUsers(userListState(*usersStatus, *usersSearch, *usersPageSize))

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
