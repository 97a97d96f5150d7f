package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:19443", cfg.Node.Endpoint)
	assert.Equal(t, 33, cfg.UI.TickDelayMS)
	assert.Equal(t, 0, cfg.UI.EnumerationCap)
	assert.Equal(t, "wrbhost", cfg.Pod.App)
	assert.False(t, cfg.Debug.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WRB_NODE_ENDPOINT", "http://node.internal:9000")
	t.Setenv("WRB_POD_IDENTITY", "alice")
	t.Setenv("WRB_UI_ENUMERATION_CAP", "128")
	t.Setenv("WRB_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://node.internal:9000", cfg.Node.Endpoint)
	assert.Equal(t, "alice", cfg.Pod.Identity)
	assert.Equal(t, 128, cfg.UI.EnumerationCap)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestProfileOverridesEnvironment(t *testing.T) {
	t.Setenv("WRB_NODE_ENDPOINT", "http://from-env:1")

	profile := filepath.Join(t.TempDir(), "wrb.toml")
	require.NoError(t, os.WriteFile(profile, []byte(`
[node]
endpoint = "http://from-profile:2"

[pod]
identity = "bob"
home = "bob.pods/home"

[ui]
tick_delay_ms = 16
`), 0o644))

	cfg, err := Load(profile)
	require.NoError(t, err)
	assert.Equal(t, "http://from-profile:2", cfg.Node.Endpoint)
	assert.Equal(t, "bob", cfg.Pod.Identity)
	assert.Equal(t, "bob.pods/home", cfg.Pod.Home)
	assert.Equal(t, 16, cfg.UI.TickDelayMS)
	// keys absent from the profile keep their defaults
	assert.Equal(t, 3, cfg.Node.Retries)
}

func TestLoadRejectsBadProfile(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "wrb.toml")
	require.NoError(t, os.WriteFile(profile, []byte("not [valid toml"), 0o644))

	_, err := Load(profile)
	assert.Error(t, err)
}

func TestLoadMissingProfile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(*Config) {}, true},
		{"empty endpoint", func(c *Config) { c.Node.Endpoint = "" }, false},
		{"negative tick delay", func(c *Config) { c.UI.TickDelayMS = -1 }, false},
		{"negative enumeration cap", func(c *Config) { c.UI.EnumerationCap = -5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
