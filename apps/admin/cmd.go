package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/littleoaks/schoolops/core/billing"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sqlx.DB
	billSvc *billing.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  seedfees -org ORG_ID - insert a starter tuition fee-structure set for an organization")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedFeesCmd := flag.NewFlagSet("seedfees", flag.ExitOnError)
	seedFeesOrg := seedFeesCmd.String("org", "", "The organization's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedfees":
		if err := seedFeesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedFeesOrg == "" {
			seedFeesCmd.Usage()
			return errHelp
		}
		return cli.seedFees(*seedFeesOrg)
	default:
		cli.printUsage()
		return errHelp
	}
}
