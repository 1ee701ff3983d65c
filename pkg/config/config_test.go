package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spectral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
adapter: generic
device: /dev/i2c-1
address: 0x4A
poll_interval: 2ms
strict: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AdapterGeneric, cfg.Adapter)
	assert.Equal(t, "/dev/i2c-1", cfg.Device)
	assert.Equal(t, uint8(0x4A), cfg.Address)
	assert.Equal(t, 2*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Strict)
	// defaults survive
	assert.Equal(t, 400, cfg.MaxPolls)
	assert.Equal(t, -1, cfg.Bus)
	assert.Equal(t, 50*time.Millisecond, cfg.ResponseWait)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown adapter", "adapter: ftdi\n"},
		{"wide address", "address: 0x80\n"},
		{"negative interval", "poll_interval: -1ms\n"},
		{"malformed", "adapter: [sim\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.content))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Equal(t, "latest-unknown-none", BuildInfo())
}
