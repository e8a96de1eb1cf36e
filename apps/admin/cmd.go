package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sql.DB
	usrRepo     user.Repository
	studentRepo student.Repository
	out         io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the database")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-admin] - create or update an active staff account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset a staff member's password")
	fmt.Fprintln(cli.out, "  qrcodes -out DIR [-class ID] [-size PX] - write the students' QR codes as PNG files")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The staff member's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The staff member's email. The password will be prompted next.")

	qrCodesCmd := flag.NewFlagSet("qrcodes", flag.ContinueOnError)
	qrCodesCmd.SetOutput(cli.out)
	qrCodesOut := qrCodesCmd.String("out", "", "The directory to write the PNG files to.")
	qrCodesClass := qrCodesCmd.Int("class", 0, "Only the students of this class ID.")
	qrCodesSize := qrCodesCmd.Int("size", student.DefaultQRSize, "The image width and height in pixels.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "qrcodes":
		if err := qrCodesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *qrCodesOut == "" {
			qrCodesCmd.Usage()
			return errHelp
		}
		return cli.writeQRCodes(*qrCodesOut, *qrCodesClass, *qrCodesSize)

	default:
		cli.printUsage()
		return errHelp
	}
}
