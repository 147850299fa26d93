// Package config loads Waypoint's engine configuration from a yaml file,
// defaulting to ~/.waypoint/config.yaml. A missing file yields the
// defaults; a malformed file is an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/waypoint/pkg/engine"
	"github.com/entrhq/waypoint/pkg/safety"
)

// Config is the full on-disk configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Safety SafetyConfig `yaml:"safety"`
	Frames FrameConfig  `yaml:"frames"`
}

// EngineConfig tunes resolution and execution. Durations are milliseconds.
type EngineConfig struct {
	FloorConfidence float64 `yaml:"floor_confidence"`
	ScrollStep      float64 `yaml:"scroll_step"`
	RetryDelayMs    int     `yaml:"retry_delay_ms"`
	WaitDelayMs     int     `yaml:"wait_delay_ms"`
	RippleGrowMs    int     `yaml:"ripple_grow_ms"`
	RippleFadeMs    int     `yaml:"ripple_fade_ms"`
	OutlineMs       int     `yaml:"outline_ms"`
	ScrapeLimit     int     `yaml:"scrape_limit"`
}

// SafetyConfig tunes the emergency stop.
type SafetyConfig struct {
	// Keybind is the document-level stop combination, e.g.
	// "ctrl+shift+esc".
	Keybind string `yaml:"keybind"`

	// HistorySize caps the retained stop-event history.
	HistorySize int `yaml:"history_size"`
}

// FrameConfig gates which frames traversal descends into, by URL glob.
type FrameConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			FloorConfidence: engine.FloorConfidence,
			ScrollStep:      engine.DefaultScrollStep,
		},
		Safety: SafetyConfig{
			Keybind:     safety.DefaultKeybind,
			HistorySize: safety.DefaultHistorySize,
		},
	}
}

// DefaultPath returns ~/.waypoint/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".waypoint", "config.yaml"), nil
}

// Load reads the configuration at path, or the default path when path is
// empty. A nonexistent file returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(path string, cfg Config) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Engine.FloorConfidence < 0 || c.Engine.FloorConfidence > 1 {
		return fmt.Errorf("floor_confidence must be between 0 and 1")
	}
	if c.Safety.Keybind != "" {
		if _, err := safety.ParseKeybind(c.Safety.Keybind); err != nil {
			return err
		}
	}
	return nil
}

// EngineOptions maps the file configuration onto engine options.
func (c Config) EngineOptions() engine.Options {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return engine.Options{
		FloorConfidence: c.Engine.FloorConfidence,
		ScrollStep:      c.Engine.ScrollStep,
		RetryDelay:      ms(c.Engine.RetryDelayMs),
		WaitDelay:       ms(c.Engine.WaitDelayMs),
		RippleGrow:      ms(c.Engine.RippleGrowMs),
		RippleFade:      ms(c.Engine.RippleFadeMs),
		OutlineDuration: ms(c.Engine.OutlineMs),
		ScrapeLimit:     c.Engine.ScrapeLimit,
		FrameAllow:      c.Frames.Allow,
		FrameDeny:       c.Frames.Deny,
	}
}
