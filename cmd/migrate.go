package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"rssd/store"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the database if it does not exist.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "rssd.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"RSSD_DATABASE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)
			return store.Migrate(database)
		},
	}
}
