package signer

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, dir, name string, seed []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600))
	return path
}

func TestNewLocalSigner_PlainKeyFile(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, ed25519.SeedSize)
	path := writeSeedFile(t, t.TempDir(), "signer.key", seed)

	local, err := NewLocalSigner(LocalSignerOptions{KeyPath: path})
	require.NoError(t, err)

	expected := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x42}, ed25519.SeedSize))
	data := []byte("attest")
	assert.True(t, ed25519.Verify(expected.Public().(ed25519.PublicKey), data, local.Sign(data)))
}

func TestNewLocalSigner_EncryptedKeyFile(t *testing.T) {
	seed := bytes.Repeat([]byte{0x17}, ed25519.SeedSize)
	password := "correct horse battery staple"

	recipient, err := age.NewScryptRecipient(password)
	require.NoError(t, err)

	var encrypted bytes.Buffer
	w, err := age.Encrypt(&encrypted, recipient)
	require.NoError(t, err)
	_, err = w.Write([]byte(hex.EncodeToString(seed)))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "signer.key.age")
	require.NoError(t, os.WriteFile(path, encrypted.Bytes(), 0o600))

	// The .age suffix implies encryption without an explicit flag.
	local, err := NewLocalSigner(LocalSignerOptions{KeyPath: path, Password: password})
	require.NoError(t, err)
	assert.False(t, local.PublicKey().IsZero())

	_, err = NewLocalSigner(LocalSignerOptions{KeyPath: path})
	assert.ErrorContains(t, err, "no password provided")

	_, err = NewLocalSigner(LocalSignerOptions{KeyPath: path, Password: "wrong"})
	assert.Error(t, err)
}

func TestNewLocalSigner_BadInputs(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLocalSigner(LocalSignerOptions{})
	assert.ErrorContains(t, err, "key path is required")

	_, err = NewLocalSigner(LocalSignerOptions{KeyPath: filepath.Join(dir, "missing.key")})
	assert.ErrorContains(t, err, "not found")

	badHex := filepath.Join(dir, "bad.key")
	require.NoError(t, os.WriteFile(badHex, []byte("not-hex"), 0o600))
	_, err = NewLocalSigner(LocalSignerOptions{KeyPath: badHex})
	assert.ErrorContains(t, err, "decode key hex")

	shortSeed := writeSeedFile(t, dir, "short.key", []byte{1, 2, 3})
	_, err = NewLocalSigner(LocalSignerOptions{KeyPath: shortSeed})
	assert.ErrorContains(t, err, "invalid seed length")
}
