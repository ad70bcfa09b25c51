package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"rssd/config"
	"rssd/fetch"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate the configured feed list",
		Description: `Fetches every configured feed once and reports which URLs resolve
to a parseable feed. Run before starting the daemon to catch dead or
misconfigured feeds.`,
		Flags: []cli.Flag{
			configFlag(),
			verboseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			urls := cfg.Feeds.URLs()
			if len(urls) == 0 {
				fmt.Println("No feeds configured")
				return nil
			}

			fmt.Printf("Checking %d feeds...\n", len(urls))
			ok, failed := fetch.Resolve(ctx.Context, fetch.NewHTTPFetcher(fetchTimeout), urls)

			fmt.Printf("Valid feeds: %d\nInvalid feeds: %d\nValid feed rate: %d/%d\n",
				len(ok), len(failed), len(ok), len(urls))

			if ctx.Int("verbose") > 0 {
				for _, u := range ok {
					fmt.Printf("ok      %s\n", u)
				}
				for _, u := range failed {
					fmt.Printf("failed  %s\n", u)
				}
			}

			return nil
		},
	}
}
