package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/storage/supabase"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf  *core.Config
	store *supabase.Client
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addchurch -branch BRANCH -location LOCATION        - create a church row and print its id")
	fmt.Println("  addadmin -email EMAIL -name NAME -church CHURCH_ID - create an admin (password prompted)")
	fmt.Println("  resetpassword -email EMAIL                         - reset a user's password (prompted)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addChurchCmd := flag.NewFlagSet("addchurch", flag.ExitOnError)
	addChurchBranch := addChurchCmd.String("branch", "", "The branch name.")
	addChurchLocation := addChurchCmd.String("location", "", "The branch location.")

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminName := addAdminCmd.String("name", "", "The admin's full name.")
	addAdminChurch := addAdminCmd.String("church", "", "The church the admin belongs to.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "addchurch":
		if err := addChurchCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addChurchBranch == "" || *addChurchLocation == "" {
			addChurchCmd.Usage()
			return errHelp
		}
		return cli.addChurch(*addChurchBranch, *addChurchLocation)
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" || *addAdminName == "" || *addAdminChurch == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		return cli.addAdmin(*addAdminEmail, *addAdminName, *addAdminChurch, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) < core.PasswordMinLen() {
		return "", fmt.Errorf("password must be at least %d characters", core.PasswordMinLen())
	}
	return string(pwd), nil
}
