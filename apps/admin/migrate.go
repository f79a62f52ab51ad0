package main

import (
	"github.com/spf13/cobra"

	"github.com/rapor-tpq/rapor/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.database()
	if err != nil {
		return err
	}
	return gooseRunFunc(args[0], db, cli.conf.Database.Engine, args[1:]...)
}
