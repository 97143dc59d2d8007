// Package config holds the persistent settings of patchthru, stored as JSON
// under ~/.config/patchthru.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chase3718/patchthru/midi"
)

// UI names a front end.
type UI string

const (
	UITerminal UI = "tui"
	UILine     UI = "cli"
	UIMCP      UI = "mcp"
)

// Valid reports whether u names a known front end.
func (u UI) Valid() bool {
	switch u {
	case UITerminal, UILine, UIMCP:
		return true
	}
	return false
}

// Config is the main configuration structure
type Config struct {
	// BaudRate > 0 opens plain device paths as serial ports.
	BaudRate int    `json:"baudRate,omitempty"`
	UI       UI     `json:"ui,omitempty"`
	LogFile  string `json:"logFile,omitempty"`
	MaxSysEx int    `json:"maxSysEx,omitempty"`
	PatchDir string `json:"patchDir,omitempty"`
	Debug    bool   `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		UI:       UITerminal,
		MaxSysEx: midi.DefaultMaxSysEx,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "patchthru"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default location, or returns defaults if
// there is none.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields the file leaves out keep their
// defaults and a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	if !c.UI.Valid() {
		return fmt.Errorf("unknown ui %q (want tui, cli or mcp)", c.UI)
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("baud rate must not be negative, got %d", c.BaudRate)
	}
	if c.MaxSysEx <= 0 {
		return fmt.Errorf("max sysex must be positive, got %d", c.MaxSysEx)
	}
	return nil
}

// Save writes the config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
