package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/credstore/internal/output"
	"github.com/semmy-space/credstore/internal/secrets"
)

func TestConfigSetGetUnset(t *testing.T) {
	h := newHarness(t)

	res := h.run("config", "set", "store_type", secrets.KeyringStoreType)
	require.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Set store_type = KeyringCredentialStore")

	res = h.run("config", "get", "store_type")
	require.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Equal(t, "KeyringCredentialStore\n", res.stdout)

	res = h.run("config", "unset", "store_type")
	require.Equal(t, output.ExitOK, res.code, res.stderr)

	res = h.run("config", "get", "store_type")
	require.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Equal(t, "\n", res.stdout)
}

func TestConfigSetValidation(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		errorMsg string
	}{
		{name: "unknown key", key: "region", value: "us", errorMsg: "Unknown config key: region"},
		{name: "unknown store type", key: "store_type", value: "JCEKS", errorMsg: "Invalid store type"},
		{name: "unknown output", key: "default_output", value: "yaml", errorMsg: "Invalid output mode"},
		{name: "short salt", key: "mask_salt", value: "abc", errorMsg: "Invalid mask salt"},
		{name: "semicolon salt", key: "mask_salt", value: "1234;678", errorMsg: "Invalid mask salt"},
		{name: "iteration above int32", key: "mask_iteration", value: "2147483648", errorMsg: "Invalid mask iteration"},
		{name: "iteration not a number", key: "mask_iteration", value: "lots", errorMsg: "Failed to set config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.run("config", "set", tt.key, tt.value)
			assert.Equal(t, output.ExitFailure, res.code)
			assert.Contains(t, res.stderr, tt.errorMsg)

			_, err := os.Stat(h.configPath)
			assert.True(t, os.IsNotExist(err), "rejected values are not written")
		})
	}
}

func TestConfigList(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, output.ExitOK, h.run("config", "set", "mask_salt", "abcdefgh").code)

	res := h.run("-o", "plain", "config", "list")
	require.Equal(t, output.ExitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Key\tValue", lines[0])
	assert.Contains(t, lines, "mask_salt\t****efgh")
	assert.Contains(t, lines, "store_type\t")
}

func TestConfigPath(t *testing.T) {
	h := newHarness(t)

	res := h.run("config", "path")
	require.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Equal(t, h.configPath+"\n", res.stdout)
	assert.Contains(t, res.stderr, "does not exist yet")
}

func TestConfigInvalidFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.configPath, []byte("{store_type: "), 0600))

	res := h.run("config", "list")
	assert.Equal(t, output.ExitFailure, res.code)
	assert.Contains(t, res.stderr, "unable to load config")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "empty string", value: "", expected: ""},
		{name: "1 char", value: "a", expected: "****"},
		{name: "4 chars", value: "abcd", expected: "****"},
		{name: "5 chars", value: "abcde", expected: "****bcde"},
		{name: "long string", value: "secret-key-12345", expected: "****2345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.value))
		})
	}
}
