package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"syscall"

	"filippo.io/age"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/fystack/walletcore/pkg/security"
	"github.com/fystack/walletcore/pkg/wire"
)

func generateKey(ctx context.Context, c *cli.Command) error {
	output := c.String("output")
	encrypt := c.Bool("encrypt")
	overwrite := c.Bool("overwrite")

	keyPath := output
	if encrypt && !strings.HasSuffix(keyPath, ".age") {
		keyPath += ".age"
	}
	if _, err := os.Stat(keyPath); err == nil && !overwrite {
		return fmt.Errorf("key file already exists: %s (use --overwrite to force)", keyPath)
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to generate seed: %w", err)
	}
	defer security.ZeroBytes(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	pub, err := wire.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return fmt.Errorf("failed to derive public key: %w", err)
	}

	hexSeed := []byte(hex.EncodeToString(seed))
	defer security.ZeroBytes(hexSeed)

	data := hexSeed
	if encrypt {
		passphrase, err := promptPassphrase()
		if err != nil {
			return err
		}
		data, err = encryptWithPassphrase(hexSeed, passphrase)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(keyPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	fmt.Println("Generated key file:", keyPath)
	fmt.Println("Public key:", pub.String())
	return nil
}

func promptPassphrase() (string, error) {
	fmt.Print("Enter passphrase: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	fmt.Print("Confirm passphrase: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(first), nil
}

func encryptWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}

	var buf strings.Builder
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish encryption: %w", err)
	}
	return []byte(buf.String()), nil
}
