// Package config provides Viper-based configuration loading for the
// spellrange resolver and simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RangeConfig holds resolver and scheduler tuning.
type RangeConfig struct {
	// TickCadence is the minimum spacing between invalidation ticks and the
	// load-shedding window for non-priority units.
	TickCadence time.Duration `mapstructure:"tick_cadence"`
	// CacheWindow is the result cache validity window.
	CacheWindow time.Duration `mapstructure:"cache_window"`
	// SweepInterval is how often the expired-entry sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// SweepBudget is the maximum entries removed per sweep.
	SweepBudget int `mapstructure:"sweep_budget"`
	// PriorityUnits is the load-shedding allowlist. Numbered entries may use
	// the "name1-N" shorthand (e.g. "boss1-5").
	PriorityUnits []string `mapstructure:"priority_units"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps Lua opcodes per script execution. 0 uses the
	// sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Range     RangeConfig     `mapstructure:"range"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Load reads configuration from path with SPELLRANGE_-prefixed environment
// variable overrides and built-in defaults.
//
// Postcondition: Returns a validated Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("SPELLRANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
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

// Default returns the built-in configuration without reading any file.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshalling default config: %v", err))
	}
	return cfg
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateRange(c.Range); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must not be negative, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRange(r RangeConfig) error {
	var errs []string
	if r.TickCadence <= 0 {
		errs = append(errs, "range.tick_cadence must be positive")
	}
	if r.CacheWindow <= 0 {
		errs = append(errs, "range.cache_window must be positive")
	}
	if r.SweepInterval < r.CacheWindow {
		errs = append(errs, "range.sweep_interval must not be shorter than range.cache_window")
	}
	if r.SweepBudget < 1 {
		errs = append(errs, fmt.Sprintf("range.sweep_budget must be >= 1, got %d", r.SweepBudget))
	}
	if len(r.PriorityUnits) == 0 {
		errs = append(errs, "range.priority_units must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	if l.Format != "json" && l.Format != "console" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or console, got %q", l.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("range.tick_cadence", "200ms")
	v.SetDefault("range.cache_window", "1500ms")
	v.SetDefault("range.sweep_interval", "3s")
	v.SetDefault("range.sweep_budget", 50)
	v.SetDefault("range.priority_units", []string{
		"player", "target", "focus", "mouseover", "arena1-5", "boss1-5", "party1-4",
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scripting.instruction_limit", 0)
}
