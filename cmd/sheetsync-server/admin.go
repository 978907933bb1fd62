package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sheetsync-go/internal/server/localserver"
	"github.com/yndnr/sheetsync-go/pkg/crypto/adaptive"
)

const envSealKey = "SHEETSYNC_STORE__SEAL_KEY"

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:      "admin",
		Usage:     "Send a command to a running server's admin socket",
		ArgsUsage: "status | cache-clear [WORKBOOK] | log-level [LEVEL]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "socket",
				Usage:    "Path of server.admin_socket",
				EnvVars:  []string{"SHEETSYNC_SERVER__ADMIN_SOCKET"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.ShowSubcommandHelp(c)
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			data, err := localserver.Call(ctx, c.String("socket"), c.Args().First(), c.Args().Tail()...)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, out.String())
			return nil
		},
	}
}

func sealKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "seal-key",
		Usage: "Generate a random store.seal_key",
		Action: func(c *cli.Context) error {
			key, err := adaptive.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, key)
			return nil
		},
	}
}

func sealCommand() *cli.Command {
	return &cli.Command{
		Name:  "seal",
		Usage: "Seal a service account private key for use in the config file",
		Description: "Reads the PEM private key from --in (default stdin) and prints the sealed\n" +
			"value to paste into credentials[].private_key. The value only opens for\n" +
			"the same client_email and store.seal_key.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "client_email the key belongs to",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "store.seal_key (64 hex digits or base64)",
				EnvVars: []string{envSealKey},
			},
			&cli.StringFlag{
				Name:  "in",
				Usage: "file holding the PEM private key, - for stdin",
				Value: "-",
			},
		},
		Action: func(c *cli.Context) error {
			if c.String("key") == "" {
				return fmt.Errorf("--key or %s is required", envSealKey)
			}
			key, err := adaptive.ParseKey(c.String("key"))
			if err != nil {
				return err
			}

			var plain []byte
			if in := c.String("in"); in == "-" {
				plain, err = io.ReadAll(c.App.Reader)
			} else {
				plain, err = os.ReadFile(in)
			}
			if err != nil {
				return err
			}
			if !strings.Contains(string(plain), "PRIVATE KEY") {
				return fmt.Errorf("input is not a PEM private key")
			}

			aead, err := adaptive.New(key)
			if err != nil {
				return err
			}
			sealed, err := adaptive.Seal(aead, bytes.TrimSpace(plain), []byte(c.String("email")))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, sealed)
			return nil
		},
	}
}
