package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"rssd/store"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing seen items older than the given
		age. Pruning re-opens the dedup window for pruned items, so only
		use an age well beyond the lifetime of your feeds' archives.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "rssd.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"RSSD_DATABASE"},
			},
			&cli.IntFlag{
				Name:  "max-age-days",
				Value: 90,
				Usage: "Remove seen items first seen more than this many days ago",
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			maxAge := time.Duration(ctx.Int("max-age-days")) * 24 * time.Hour

			removed, err := store.Tidy(database, maxAge)
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d seen items\n", removed)
			return nil
		},
	}
}
