package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrSvc     user.ServiceInterface
	usrRepo    user.Repository
	remindSvc  reminder.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

// describe turns validation errors into a readable error, one line per field.
func (cli *commandLine) describe(err error) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	lines := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		lines = append(lines, vErr.Field()+": "+vErr.Translate(cli.translator))
	}
	sort.Strings(lines)
	return errors.New(strings.Join(lines, "\n"))
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, a...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)\n")
	cli.printf("  adduser -username USERNAME -email EMAIL [-admin] - create a user or update an existing one\n")
	cli.printf("  resetpassword -username USERNAME|EMAIL - reset user's password\n")
	cli.printf("  sendreminders -timezone TZ - send the daily reminders of a timezone now\n")
}

func (cli *commandLine) readPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
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

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	sendRemindersCmd := flag.NewFlagSet("sendreminders", flag.ExitOnError)
	sendRemindersTZ := sendRemindersCmd.String("timezone", "", "The IANA time zone of the users to remind, eg. Africa/Kinshasa.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "sendreminders":
		if err := sendRemindersCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sendRemindersTZ == "" {
			sendRemindersCmd.Usage()
			return errHelp
		}
		return cli.sendReminders(*sendRemindersTZ)

	default:
		cli.printUsage()
		return errHelp
	}
}
