// Package config loads game configuration from an optional YAML file and
// FRANCO_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output lists zap sink paths. The terminal UI owns stdout, so the game
	// defaults to a log file.
	Output []string `mapstructure:"output"`
}

// PersistenceConfig selects where games are saved and how hard to try.
type PersistenceConfig struct {
	// Backend is "http" for the remote save API or "file" for local YAML saves.
	Backend        string        `mapstructure:"backend"`
	Endpoint       string        `mapstructure:"endpoint"`
	SaveDir        string        `mapstructure:"save_dir"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	// ProbeInterval is how often connectivity is checked while running.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// PlayerConfig identifies the local player.
type PlayerConfig struct {
	// UserID keys the player's save. Empty means a generated id is used.
	UserID string `mapstructure:"user_id"`
	Name   string `mapstructure:"name"`
}

// SaveStoreConfig configures the save API server.
type SaveStoreConfig struct {
	Addr string `mapstructure:"addr"`
	// Database is the SQLite file path. Empty keeps saves in memory.
	Database string `mapstructure:"database"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// SimulateConfig drives the self-playing harness.
type SimulateConfig struct {
	MaxTurns int `mapstructure:"max_turns"`
	// Player is "route" or "gemini".
	Player string `mapstructure:"player"`
}

// Config holds the application configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Player      PlayerConfig      `mapstructure:"player"`
	SaveStore   SaveStoreConfig   `mapstructure:"savestore"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Simulate    SimulateConfig    `mapstructure:"simulate"`
}

// Validate checks all configuration invariants and reports every violation.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePersistence(c.Persistence); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulate(c.Simulate); err != nil {
		errs = append(errs, err.Error())
	}
	if c.SaveStore.Addr == "" {
		errs = append(errs, "savestore.addr must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if len(l.Output) == 0 {
		return errors.New("logging.output must name at least one sink")
	}
	return nil
}

func validatePersistence(p PersistenceConfig) error {
	var errs []string
	switch p.Backend {
	case "http":
		if p.Endpoint == "" {
			errs = append(errs, "persistence.endpoint must be set for the http backend")
		}
	case "file":
		if p.SaveDir == "" {
			errs = append(errs, "persistence.save_dir must be set for the file backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("persistence.backend must be one of [http, file], got %q", p.Backend))
	}
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("persistence.max_attempts must be >= 1, got %d", p.MaxAttempts))
	}
	if p.AttemptTimeout <= 0 {
		errs = append(errs, "persistence.attempt_timeout must be positive")
	}
	if p.InitialBackoff <= 0 {
		errs = append(errs, "persistence.initial_backoff must be positive")
	}
	if p.MaxBackoff < p.InitialBackoff {
		errs = append(errs, "persistence.max_backoff must not be less than persistence.initial_backoff")
	}
	if p.ProbeInterval <= 0 {
		errs = append(errs, "persistence.probe_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulate(s SimulateConfig) error {
	var errs []string
	if s.MaxTurns < 1 {
		errs = append(errs, fmt.Sprintf("simulate.max_turns must be >= 1, got %d", s.MaxTurns))
	}
	if s.Player != "route" && s.Player != "gemini" {
		errs = append(errs, fmt.Sprintf("simulate.player must be one of [route, gemini], got %q", s.Player))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from path, applies environment overrides, and
// validates the result. An empty path uses defaults and the environment only.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetEnvPrefix("FRANCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Gemini SDK convention still works without the prefix.
	if err := v.BindEnv("gemini.api_key", "FRANCO_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("binding gemini key: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", []string{"franco.log"})

	v.SetDefault("persistence.backend", "file")
	v.SetDefault("persistence.endpoint", "")
	v.SetDefault("persistence.save_dir", ".saves")
	v.SetDefault("persistence.attempt_timeout", "10s")
	v.SetDefault("persistence.max_attempts", 4)
	v.SetDefault("persistence.initial_backoff", "250ms")
	v.SetDefault("persistence.max_backoff", "4s")
	v.SetDefault("persistence.probe_interval", "15s")

	v.SetDefault("player.user_id", "")
	v.SetDefault("player.name", "")

	v.SetDefault("savestore.addr", "127.0.0.1:8080")
	v.SetDefault("savestore.database", "franco.db")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("simulate.max_turns", 40)
	v.SetDefault("simulate.player", "route")
}
