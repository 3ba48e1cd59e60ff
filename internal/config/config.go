// Package config loads the controller daemon settings from an optional
// YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/autobuy/internal/controller"
)

// #region types

// Config is the full daemon configuration.
type Config struct {
	ListenAddr   string           `yaml:"listen_addr"`
	DBPath       string           `yaml:"db_path"`
	PrefsBackend string           `yaml:"prefs_backend"` // "sqlite" | "json"
	PrefsPath    string           `yaml:"prefs_path"`    // json backend only
	LogLevel     string           `yaml:"log_level"`
	Controller   ControllerConfig `yaml:"controller"`
}

// ControllerConfig mirrors controller.Config with millisecond fields.
type ControllerConfig struct {
	MenuTimeoutMS    int64    `yaml:"menu_timeout_ms"`
	ClickDelayMS     int64    `yaml:"click_delay_ms"`
	SettleDelayMS    int64    `yaml:"settle_delay_ms"`
	CooldownMS       int64    `yaml:"cooldown_ms"`
	TriggerCommand   string   `yaml:"trigger_command"`
	InteractiveKinds []string `yaml:"interactive_kinds"`
}

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// #endregion types

// #region defaults

// Default returns the configuration used when no file is given.
func Default() Config {
	c := controller.DefaultConfig()
	return Config{
		ListenAddr:   "localhost:50061",
		DBPath:       "autobuy.db",
		PrefsBackend: BackendSQLite,
		PrefsPath:    "config/autoenchantbuy.json",
		LogLevel:     "info",
		Controller: ControllerConfig{
			MenuTimeoutMS:  c.MenuTimeout.Milliseconds(),
			ClickDelayMS:   c.ClickDelay.Milliseconds(),
			SettleDelayMS:  c.SettleDelay.Milliseconds(),
			CooldownMS:     c.Cooldown.Milliseconds(),
			TriggerCommand: c.TriggerCommand,
		},
	}
}

// #endregion defaults

// #region load

// Load reads path over the defaults and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ListenAddr = envOr("AUTOBUY_ADDR", cfg.ListenAddr)
	cfg.DBPath = envOr("AUTOBUY_DB", cfg.DBPath)
	cfg.PrefsPath = envOr("AUTOBUY_PREFS", cfg.PrefsPath)
	cfg.PrefsBackend = envOr("AUTOBUY_PREFS_BACKEND", cfg.PrefsBackend)
	cfg.LogLevel = envOr("AUTOBUY_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	switch c.PrefsBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("db_path is required for the sqlite backend")
		}
	case BackendJSON:
		if c.PrefsPath == "" {
			return errors.New("prefs_path is required for the json backend")
		}
	default:
		return fmt.Errorf("unknown prefs_backend %q", c.PrefsBackend)
	}
	if err := c.Controller.Build().Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	return nil
}

// #endregion validate

// #region conversions

// Build converts the millisecond fields to a controller.Config.
func (c ControllerConfig) Build() controller.Config {
	return controller.Config{
		MenuTimeout:      time.Duration(c.MenuTimeoutMS) * time.Millisecond,
		ClickDelay:       time.Duration(c.ClickDelayMS) * time.Millisecond,
		SettleDelay:      time.Duration(c.SettleDelayMS) * time.Millisecond,
		Cooldown:         time.Duration(c.CooldownMS) * time.Millisecond,
		TriggerCommand:   c.TriggerCommand,
		InteractiveKinds: c.InteractiveKinds,
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// #endregion conversions

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
