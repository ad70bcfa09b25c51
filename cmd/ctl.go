package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"rssd/config"
	"rssd/control"
)

func ctlCmd() *cli.Command {
	return &cli.Command{
		Name:      "ctl",
		Usage:     "Send a command to a running daemon",
		ArgsUsage: "<command>",
		Description: `Sends one control command to the daemon listening on the configured
socket and prints the reply. Examples:

		rssd ctl feed add https://example.org/feed.xml
		rssd ctl feed remove https://example.org/feed.xml
		rssd ctl feed list
		rssd ctl ping
		rssd ctl version`,
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			line := strings.Join(ctx.Args().Slice(), " ")
			cmd, err := control.Parse(line)
			if err != nil {
				return fmt.Errorf("error parsing command %q: %w", line, err)
			}

			reply, err := control.Send(cfg.Socket, cmd)
			if err != nil {
				return err
			}

			fmt.Println(reply)
			return nil
		},
	}
}
