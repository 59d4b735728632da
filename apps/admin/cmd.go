package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/storage"
	"github.com/trezcool/masomo-dashboard/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	// mockable
	openDB      func() (*sql.DB, error)
	openStorage func() (*storage.Repositories, error)
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	return &commandLine{
		conf:   conf,
		logger: logger,
		out:    out,
		openDB: func() (*sql.DB, error) {
			ctx := context.Background()
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			db, err := database.Connect(ctx, conf)
			if err != nil {
				return nil, err
			}
			return db.DB, nil
		},
		openStorage: func() (*storage.Repositories, error) {
			return storage.Open(context.Background(), conf)
		},
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                                 - run a goose command, eg. up | down | status")
	fmt.Fprintln(cli.out, "  seed [-file dataset.json]                                 - import a region & inventory dataset")
	fmt.Fprintln(cli.out, "  token -subject ID [-admin]                                - issue an API token")
	fmt.Fprintln(cli.out, "  browse -form FORM [-url URL] [-token TOKEN] [LEVEL=ID...] - walk a form against a running API")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFile := seedCmd.String("file", "", "The JSON dataset to import. Defaults to the sample dataset.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSubject := tokenCmd.String("subject", "", "The teacher (or admin) id.")
	tokenUsername := tokenCmd.String("username", "", "The username carried by the token.")
	tokenEmail := tokenCmd.String("email", "", "The email carried by the token.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Issue an admin token.")

	browseCmd := flag.NewFlagSet("browse", flag.ContinueOnError)
	browseForm := browseCmd.String("form", "", "The form to walk, eg. student-enrollment.")
	browseURL := browseCmd.String("url", cli.conf.RefData.BaseURL, "The dashboard API base URL.")
	browseToken := browseCmd.String("token", "", "The API token. Prompted when omitted.")

	for _, cmd := range []*flag.FlagSet{seedCmd, tokenCmd, browseCmd} {
		cmd.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.seed(*seedFile)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if core.CleanString(*tokenSubject) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		identity := core.Identity{
			ID:       core.CleanString(*tokenSubject),
			Username: core.CleanString(*tokenUsername, true /* lower */),
			Email:    core.CleanString(*tokenEmail, true /* lower */),
		}
		return cli.token(identity, *tokenAdmin)

	case "browse":
		if err := browseCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *browseForm == "" {
			browseCmd.Usage()
			return errHelp
		}
		token := *browseToken
		if token == "" {
			fmt.Fprint(cli.out, "Enter token:")
			b, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if token = strings.TrimSpace(string(b)); token == "" {
				browseCmd.Usage()
				return errHelp
			}
		}
		return cli.browse(*browseForm, *browseURL, token, browseCmd.Args())

	default:
		cli.printUsage()
		return errHelp
	}
}
