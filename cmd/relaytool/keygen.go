package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/keys"
)

var keygen = &cli.Command{
	Name:  "keygen",
	Usage: "generate a key pair, or show the public key of a secret key",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "sec",
			Usage: "secret key in hex or nsec to derive from instead of a new one",
		},
		&cli.BoolFlag{
			Name:  "qr",
			Usage: "also print the npub as a QR code",
		},
	},
	Action: func(c *cli.Context) (err error) {
		sk := c.String("sec")
		if sk == "" {
			sk = keys.GeneratePrivateKey()
		}
		return printKeys(c.App.Writer, sk, c.Bool("qr"))
	},
}

func printKeys(w io.Writer, sk string, qr bool) (err error) {
	if sk, err = secretKey(sk); err != nil {
		return
	}
	var pk, nsec, npub string
	if pk, err = keys.GetPublicKey(sk); chk.E(err) {
		return
	}
	if nsec, err = bech32encoding.HexToNsec(sk); chk.E(err) {
		return
	}
	if npub, err = bech32encoding.HexToNpub(pk); chk.E(err) {
		return
	}
	fmt.Fprintf(w, "sec:  %s\nnsec: %s\npub:  %s\nnpub: %s\n", sk, nsec, pk,
		npub)
	if qr {
		qrterminal.GenerateWithConfig(npub, qrterminal.Config{
			Level:     qrterminal.L,
			Writer:    w,
			WhiteChar: qrterminal.WHITE,
			BlackChar: qrterminal.BLACK,
			QuietZone: 2,
		})
	}
	return
}

// secretKey accepts a secret key as hex or nsec and returns the hex.
func secretKey(s string) (sk string, err error) {
	if strings.HasPrefix(s, bech32encoding.SecHRP) {
		if sk, err = bech32encoding.NsecToHex(s); err != nil {
			return "", fmt.Errorf("invalid nsec: %w", err)
		}
		return
	}
	if !keys.IsValid32ByteHex(s) {
		return "", fmt.Errorf("secret key must be 64 hex characters or an nsec")
	}
	return s, nil
}
