// Command relaytool is a small client for talking to a relay: it makes keys,
// publishes notes, runs subscriptions and fetches the relay information
// document.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var (
	AppName = "relaytool"
	Version = "v0.1.0"
)

var log, chk = slog.New(os.Stderr)

func newApp() *cli.App {
	return &cli.App{
		Name:    AppName,
		Usage:   "talk to a nostr relay",
		Version: Version,
		Commands: []*cli.Command{
			keygen,
			publish,
			req,
			info,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "loglevel",
				Usage:   "log level [off,fatal,error,warn,info,debug,trace]",
				Aliases: []string{"L"},
				Value:   "info",
				Action: func(ctx *cli.Context, s string) error {
					if !slog.SetLogLevelByName(s) {
						return fmt.Errorf("unknown log level '%s'", s)
					}
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
