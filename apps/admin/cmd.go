package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/user"
	sqlxrepos "github.com/rapor-tpq/rapor/storage/database/sqlx"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password cannot be empty")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	openDB func(conf *core.Config) (*sqlx.DB, error)
	db     *sqlx.DB
}

// database opens the database on first use: dataset and model commands never need it.
func (cli *commandLine) database() (*sqlx.DB, error) {
	if cli.db == nil {
		db, err := cli.openDB(cli.conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		cli.db = db
	}
	return cli.db, nil
}

func (cli *commandLine) userService() (*user.Service, error) {
	db, err := cli.database()
	if err != nil {
		return nil, err
	}
	return user.NewService(sqlxrepos.NewUserRepository(db)), nil
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) promptPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)

	root.AddCommand(
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.migrateCmd(),
		cli.genDatasetCmd(),
		cli.checkDatasetCmd(),
		cli.trainCmd(),
		cli.evaluateCmd(),
		cli.testModelCmd(),
	)
	return root
}

// run executes the command line args (without program name).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) close() {
	if cli.db != nil {
		if err := cli.db.Close(); err != nil {
			cli.logger.Error("closing database", err)
		}
	}
}

func newCommandLine(conf *core.Config, logger core.Logger, openDB func(*core.Config) (*sqlx.DB, error)) *commandLine {
	return &commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
		openDB: openDB,
	}
}
