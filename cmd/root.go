package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version is the semver reported by the CLI and the control plane.
const Version = "0.4.1"

func RootApp() *cli.App {
	return &cli.App{
		Name:    "rssd",
		Usage:   "A daemon that watches syndication feeds and forwards new items",
		Version: Version,
		Description: `rssd watches a dynamic set of RSS/Atom feeds and forwards every
		newly published item to a notification webhook exactly once.

		Feeds can be added and removed at runtime through a local control
		socket without restarting the daemon:

		rssd ctl feed add https://example.org/feed.xml

		Flags can generally be set via environment variables, e.g.:

		--config => RSSD_CONFIG=config.toml
		--database => RSSD_DATABASE=rssd.db
		`,
		Commands: []*cli.Command{
			serveCmd(),
			checkCmd(),
			ctlCmd(),
			migrateCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.toml",
		Usage:   "Path to configuration file",
		EnvVars: []string{"RSSD_CONFIG"},
	}
}

func verboseFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log verbosity (0=info, 1=debug, 2=trace)",
		EnvVars: []string{"RSSD_VERBOSE"},
	}
}

func setLogLevel(verbosity int) {
	switch {
	case verbosity <= 0:
		log.SetLevel(log.InfoLevel)
	case verbosity == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}
}
