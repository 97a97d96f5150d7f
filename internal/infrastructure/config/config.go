// Package config loads page-host configuration from the environment and an
// optional TOML profile.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all page-host configuration.
type Config struct {
	Node    NodeConfig   `toml:"node"`
	Pod     PodConfig    `toml:"pod"`
	UI      UIConfig     `toml:"ui"`
	Logging LogConfig    `envconfig:"LOG" toml:"logging"`
	Debug   DebugConfig  `toml:"debug"`
	Script  ScriptConfig `toml:"script"`
}

// NodeConfig points at the replicated slot-storage node.
type NodeConfig struct {
	Endpoint  string  `default:"http://127.0.0.1:19443" toml:"endpoint"`
	TimeoutMS int     `envconfig:"TIMEOUT_MS" default:"30000" toml:"timeout_ms"`
	Retries   int     `default:"3" toml:"retries"`
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"0" toml:"rate_limit"`
}

// PodConfig names the page process's identity and its home pod.
type PodConfig struct {
	Identity string `toml:"identity"`
	// Home is the default pod location opened at startup; empty skips it.
	Home string `toml:"home"`
	App  string `default:"wrbhost" toml:"app"`
}

// UIConfig tunes the viewport and element machinery.
type UIConfig struct {
	// EnumerationCap bounds one viewport enumeration pass for callers that
	// cannot stream; 0 means unbounded.
	EnumerationCap int `envconfig:"ENUMERATION_CAP" default:"0" toml:"enumeration_cap"`
	TickDelayMS    int `envconfig:"TICK_DELAY_MS" default:"33" toml:"tick_delay_ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `default:"info" toml:"level"`
	Development bool   `envconfig:"DEV" default:"false" toml:"development"`
}

// DebugConfig controls the local introspection server.
type DebugConfig struct {
	Enabled bool   `default:"false" toml:"enabled"`
	Addr    string `default:"127.0.0.1:8591" toml:"addr"`
}

// ScriptConfig bounds page script execution.
type ScriptConfig struct {
	TimeoutMS int `envconfig:"TIMEOUT_MS" default:"5000" toml:"timeout_ms"`
}

// Load reads configuration from environment variables, then overlays the
// TOML profile at path if one is given. Profile settings win over the
// environment; absent profile keys keep their environment values.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("WRB", &cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config profile: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config profile: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads from the environment only, falling back to defaults.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Endpoint:  "http://127.0.0.1:19443",
			TimeoutMS: 30000,
			Retries:   3,
		},
		Pod: PodConfig{
			App: "wrbhost",
		},
		UI: UIConfig{
			TickDelayMS: 33,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Debug: DebugConfig{
			Addr: "127.0.0.1:8591",
		},
		Script: ScriptConfig{
			TimeoutMS: 5000,
		},
	}
}

func (c *Config) validate() error {
	if c.Node.Endpoint == "" {
		return fmt.Errorf("node endpoint must not be empty")
	}
	if c.Node.TimeoutMS < 0 || c.UI.TickDelayMS < 0 || c.Script.TimeoutMS < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.UI.EnumerationCap < 0 {
		return fmt.Errorf("enumeration cap must not be negative")
	}
	return nil
}
