package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/entrhq/waypoint/pkg/engine"
	"github.com/entrhq/waypoint/pkg/safety"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.FloorConfidence != engine.FloorConfidence {
		t.Errorf("Expected default floor %.2f, got %.2f", engine.FloorConfidence, cfg.Engine.FloorConfidence)
	}
	if cfg.Engine.ScrollStep != engine.DefaultScrollStep {
		t.Errorf("Expected default scroll step, got %v", cfg.Engine.ScrollStep)
	}
	if cfg.Safety.Keybind != safety.DefaultKeybind {
		t.Errorf("Expected default keybind, got %q", cfg.Safety.Keybind)
	}
	if cfg.Safety.HistorySize != safety.DefaultHistorySize {
		t.Errorf("Expected default history size, got %d", cfg.Safety.HistorySize)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Missing file must not be an error: %v", err)
	}
	if cfg.Engine.FloorConfidence != engine.FloorConfidence {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `engine:
  floor_confidence: 0.5
  scroll_step: 250
  retry_delay_ms: 100
  scrape_limit: 5000
safety:
  keybind: ctrl+alt+q
  history_size: 50
frames:
  deny:
    - "*/ads/*"
`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.FloorConfidence != 0.5 || cfg.Engine.ScrollStep != 250 {
		t.Errorf("Unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Safety.Keybind != "ctrl+alt+q" || cfg.Safety.HistorySize != 50 {
		t.Errorf("Unexpected safety config %+v", cfg.Safety)
	}
	if len(cfg.Frames.Deny) != 1 || cfg.Frames.Deny[0] != "*/ads/*" {
		t.Errorf("Unexpected frame config %+v", cfg.Frames)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: ["), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for malformed yaml")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"floor too high", "engine:\n  floor_confidence: 1.5\n", "floor_confidence"},
		{"floor negative", "engine:\n  floor_confidence: -0.1\n", "floor_confidence"},
		{"bad keybind", "safety:\n  keybind: hyper+q\n", "unknown modifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.raw), 0600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q error, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Engine.FloorConfidence = 0.4
	cfg.Frames.Allow = []string{"*example.com*"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Engine.FloorConfidence != 0.4 {
		t.Errorf("Round trip lost floor, got %+v", loaded.Engine)
	}
	if len(loaded.Frames.Allow) != 1 || loaded.Frames.Allow[0] != "*example.com*" {
		t.Errorf("Round trip lost frame patterns, got %+v", loaded.Frames)
	}
}

func TestEngineOptionsMapping(t *testing.T) {
	cfg := Config{
		Engine: EngineConfig{
			FloorConfidence: 0.6,
			ScrollStep:      400,
			RetryDelayMs:    250,
			WaitDelayMs:     100,
			RippleGrowMs:    200,
			RippleFadeMs:    200,
			OutlineMs:       700,
			ScrapeLimit:     8000,
		},
		Frames: FrameConfig{Deny: []string{"*tracker*"}},
	}

	opts := cfg.EngineOptions()
	if opts.FloorConfidence != 0.6 || opts.ScrollStep != 400 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.RetryDelay != 250*time.Millisecond || opts.OutlineDuration != 700*time.Millisecond {
		t.Errorf("Millisecond fields mis-mapped: %+v", opts)
	}
	if opts.ScrapeLimit != 8000 {
		t.Errorf("Expected scrape limit 8000, got %d", opts.ScrapeLimit)
	}
	if len(opts.FrameDeny) != 1 || opts.FrameDeny[0] != "*tracker*" {
		t.Errorf("Frame patterns mis-mapped: %+v", opts.FrameDeny)
	}
}
