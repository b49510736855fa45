package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConfig_MarshalJSONMask(t *testing.T) {
	config := AppConfig{
		RPC: &RPCConfig{
			URL:    "https://rpc.example.org/mainnet",
			APIKey: "super-secret-key",
		},
		Signer: &SignerConfig{
			KeyPath:     "./signer.key.age",
			KeyPassword: "hunter2pass",
		},
		JournalPassword: "journal_secret",
	}

	masked := config.MarshalJSONMask()

	// Non-sensitive fields stay readable.
	assert.Contains(t, masked, "https://rpc.example.org/mainnet")
	assert.Contains(t, masked, "./signer.key.age")

	// Secrets never show up in log output.
	assert.NotContains(t, masked, "super-secret-key")
	assert.NotContains(t, masked, "hunter2pass")
	assert.NotContains(t, masked, "journal_secret")

	assert.Contains(t, masked, strings.Repeat("*", len("super-secret-key")))
	assert.Contains(t, masked, strings.Repeat("*", len("hunter2pass")))
	assert.Contains(t, masked, strings.Repeat("*", len("journal_secret")))
}

func TestAppConfig_MarshalJSONMask_EmptySecrets(t *testing.T) {
	config := AppConfig{
		RPC:    &RPCConfig{URL: "https://rpc.example.org"},
		Signer: &SignerConfig{KeyPath: "./signer.key"},
	}

	assert.NotPanics(t, func() {
		masked := config.MarshalJSONMask()
		assert.Contains(t, masked, "https://rpc.example.org")
	})
}

func TestAppConfig_MarshalJSONMask_NilSections(t *testing.T) {
	config := AppConfig{JournalPassword: "secret"}

	assert.NotPanics(t, func() {
		masked := config.MarshalJSONMask()
		assert.NotContains(t, masked, "secret")
	})
}
