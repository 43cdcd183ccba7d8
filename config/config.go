// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"

	"go.kwisper.app/kwisper/hotkey"
	"go.kwisper.app/kwisper/insert"
	"go.kwisper.app/kwisper/session"
)

const (
	appName        = "kwisper"
	configFileName = "config.json"
)

// Config represents the application configuration. Durations are stored
// in milliseconds so the JSON stays readable.
type Config struct {
	// Shortcut is the recording chord.
	Shortcut hotkey.Chord `json:"shortcut"`

	// Transcription settings.
	Model    string `json:"model" env:"KWISPER_MODEL"`
	Language string `json:"language,omitempty" env:"KWISPER_LANGUAGE"` // empty means auto-detect
	Prompt   string `json:"prompt,omitempty"`

	// APIKey and BaseURL may come from the config file or the
	// environment; the environment wins.
	APIKey  string `json:"api_key,omitempty" env:"OPENAI_API_KEY"`
	BaseURL string `json:"base_url,omitempty" env:"OPENAI_BASE_URL"`

	// Recording bounds.
	MinDurationMS int `json:"min_duration_ms"`
	MaxDurationS  int `json:"max_duration_s"`

	// Clipboard behavior.
	RestoreClipboard    bool `json:"restore_clipboard"`
	PasteRestoreDelayMS int  `json:"paste_restore_delay_ms"`
	TrayRestoreDelayS   int  `json:"tray_restore_delay_s"`

	// History retention.
	RetentionDays int `json:"retention_days"`
}

// Load loads configuration from the config file, applying environment
// overrides. Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run; defaults plus environment.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Session converts the recording bounds and transcription hints.
func (c *Config) Session() session.Config {
	return session.Config{
		MinDuration: time.Duration(c.MinDurationMS) * time.Millisecond,
		MaxDuration: time.Duration(c.MaxDurationS) * time.Second,
		Language:    c.Language,
		Prompt:      c.Prompt,
	}
}

// Insert converts the clipboard delays.
func (c *Config) Insert() insert.Config {
	cfg := insert.DefaultConfig()
	cfg.PasteRestoreDelay = time.Duration(c.PasteRestoreDelayMS) * time.Millisecond
	cfg.TrayRestoreDelay = time.Duration(c.TrayRestoreDelayS) * time.Second
	cfg.RestoreSnapshot = c.RestoreClipboard
	return cfg
}

// applyDefaults fills in zero values left by older config files.
func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Shortcut.KeyCode == 0 && c.Shortcut.Modifiers == 0 {
		c.Shortcut = def.Shortcut
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.MinDurationMS <= 0 {
		c.MinDurationMS = def.MinDurationMS
	}
	if c.MaxDurationS <= 0 {
		c.MaxDurationS = def.MaxDurationS
	}
	if c.PasteRestoreDelayMS <= 0 {
		c.PasteRestoreDelayMS = def.PasteRestoreDelayMS
	}
	if c.TrayRestoreDelayS <= 0 {
		c.TrayRestoreDelayS = def.TrayRestoreDelayS
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
}

// Retention converts the history retention setting.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	return &Config{
		Shortcut:            hotkey.Default(),
		Model:               "whisper-1",
		MinDurationMS:       500,
		MaxDurationS:        120,
		RestoreClipboard:    true,
		PasteRestoreDelayMS: 500,
		TrayRestoreDelayS:   10,
		RetentionDays:       30,
	}
}

// HistoryDir returns the history database directory, next to the config
// file.
func HistoryDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "history"), nil
}
