package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/fystack/walletcore/pkg/security"
	"github.com/fystack/walletcore/pkg/wire"
)

// LocalSigner signs with an in-process ed25519 key loaded from a key file.
// The file holds the hex-encoded 32-byte seed; a .age suffix means the file
// is age-scrypt encrypted and a password is required.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  wire.PublicKey
}

// LocalSignerOptions configures key loading.
type LocalSignerOptions struct {
	KeyPath   string
	Encrypted bool
	Password  string
}

func NewLocalSigner(opts LocalSignerOptions) (*LocalSigner, error) {
	if opts.KeyPath == "" {
		return nil, fmt.Errorf("key path is required")
	}
	if strings.HasSuffix(opts.KeyPath, ".age") {
		opts.Encrypted = true
	}

	keyData, err := readKeyFile(opts.KeyPath, opts.Encrypted, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(keyData)))
	security.ZeroBytes(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		security.ZeroBytes(seed)
		return nil, fmt.Errorf("invalid seed length: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	security.ZeroBytes(seed)

	pub, err := wire.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	return &LocalSigner{priv: priv, pub: pub}, nil
}

// NewLocalSignerFromKey wraps an already-loaded private key. Used by tests
// and by embedders that manage key material themselves.
func NewLocalSignerFromKey(priv ed25519.PrivateKey) (*LocalSigner, error) {
	pub, err := wire.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &LocalSigner{priv: priv, pub: pub}, nil
}

func (s *LocalSigner) PublicKey() wire.PublicKey { return s.pub }

func (s *LocalSigner) Sign(data []byte) []byte {
	return ed25519.Sign(s.priv, data)
}

func (s *LocalSigner) Name() string { return "Local Key" }

func readKeyFile(keyPath string, encrypted bool, password string) ([]byte, error) {
	if _, err := os.Stat(keyPath); err != nil {
		return nil, fmt.Errorf("key file not found: %s", keyPath)
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if !encrypted {
		return raw, nil
	}

	if password == "" {
		return nil, fmt.Errorf("encrypted key found but no password provided")
	}
	return decryptKeyFile(raw, password)
}

func decryptKeyFile(encryptedData []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity from password: %w", err)
	}

	decrypter, err := age.Decrypt(strings.NewReader(string(encryptedData)), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key file: %w", err)
	}

	decrypted, err := io.ReadAll(decrypter)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted data: %w", err)
	}
	return decrypted, nil
}
