package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "walletd-cli",
		Usage: "Wallet signing core management tools",
		Commands: []*cli.Command{
			{
				Name:   "generate-key",
				Usage:  "Generate a local signer key file, optionally age-encrypted",
				Action: generateKey,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output key file path",
						Value:   "wallet.key",
					},
					&cli.BoolFlag{
						Name:    "encrypt",
						Aliases: []string{"e"},
						Usage:   "Encrypt the key file with a passphrase",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Overwrite an existing key file",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
