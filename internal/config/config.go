// Package config loads host configuration: tick rate, script locations,
// activation defaults and the scene to instantiate.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/deckwise/stagescript/internal/deck"
)

// ConfigFileName is the per-project config file looked up in the working
// directory.
const ConfigFileName = "stagescript.yaml"

// SceneBehavior assigns one behavior to a scene actor, with optional property
// value overrides.
type SceneBehavior struct {
	Name   string         `yaml:"name"`
	Values map[string]any `yaml:"values,omitempty"`
}

// SceneActor describes one actor to instantiate at startup.
type SceneActor struct {
	Name      string          `yaml:"name"`
	OffStage  bool            `yaml:"offstage,omitempty"`
	Behaviors []SceneBehavior `yaml:"behaviors,omitempty"`
}

// Config is the host configuration.
type Config struct {
	// TickRate is simulation ticks per second.
	TickRate float64 `yaml:"tickRate"`
	// ScriptDirs are directories scanned for behavior scripts (*.js).
	ScriptDirs []string `yaml:"scriptDirs,omitempty"`
	// DefaultActionDuration overrides the action deck activation duration.
	DefaultActionDuration float64 `yaml:"defaultActionDuration,omitempty"`
	// DefaultPulseInterval overrides the action deck pulse interval.
	DefaultPulseInterval float64 `yaml:"defaultPulseInterval,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`
	// Scene lists the actors instantiated before the first tick.
	Scene []SceneActor `yaml:"scene,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickRate:              60,
		ScriptDirs:            []string{"behaviors"},
		DefaultActionDuration: deck.DefaultDuration,
		DefaultPulseInterval:  deck.DefaultPulseInterval,
		LogLevel:              "info",
	}
}

// Load reads configuration with the search order: customPath (required to
// exist when given), then the user config directory, then the working
// directory, then built-in defaults.
func Load(customPath string) (Config, error) {
	if customPath != "" {
		return read(customPath)
	}
	if p := userConfigPath(); p != "" {
		if cfg, err := read(p); err == nil {
			return cfg, nil
		}
	}
	if cfg, err := read(ConfigFileName); err == nil {
		return cfg, nil
	}
	return Default(), nil
}

func read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %v", c.TickRate)
	}
	if c.DefaultActionDuration < 0 {
		return fmt.Errorf("defaultActionDuration must not be negative, got %v", c.DefaultActionDuration)
	}
	if c.DefaultPulseInterval < 0 {
		return fmt.Errorf("defaultPulseInterval must not be negative, got %v", c.DefaultPulseInterval)
	}
	if _, err := log.ParseLevel(c.logLevelOrDefault()); err != nil {
		return fmt.Errorf("invalid logLevel %q", c.LogLevel)
	}
	return nil
}

func (c Config) logLevelOrDefault() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// ParseLogLevel returns the configured log level.
func (c Config) ParseLogLevel() log.Level {
	lvl, err := log.ParseLevel(c.logLevelOrDefault())
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stagescript", "config.yaml")
}
