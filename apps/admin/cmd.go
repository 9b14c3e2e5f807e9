package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/nkashama/tathmini/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addteacher -email EMAIL -name NAME - create or reactivate a teacher account")
	fmt.Println("  resetpassword -email EMAIL - reset a teacher's password")
	fmt.Println("  migrate COMMAND [args] - run database migrations (goose commands)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email address. The password will be prompted next.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's display name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The teacher's email address. The password will be prompted next.")

	switch args[1] {
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherEmail == "" || *addTeacherName == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherEmail, *addTeacherName, pwd)
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
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
