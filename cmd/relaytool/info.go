package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/nip11"
)

var info = &cli.Command{
	Name:      "info",
	Usage:     "print the relay information document",
	ArgsUsage: "<relay url>",
	Action: func(c *cli.Context) (err error) {
		if c.NArg() != 1 {
			return fmt.Errorf("need a relay url")
		}
		var inf *nip11.Info
		if inf, err = nip11.Fetch(c.Context, c.Args().First()); err != nil {
			return
		}
		var b []byte
		if b, err = json.MarshalIndent(inf, "", "  "); chk.E(err) {
			return
		}
		fmt.Fprintln(c.App.Writer, string(b))
		return
	},
}
