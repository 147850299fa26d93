// Package main provides the Waypoint CLI: resolve a target descriptor
// against a page and execute one action, printing the result as JSON.
// Pages come from a local HTML file (the in-memory backend) or a URL
// (the live Playwright backend).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/entrhq/waypoint/pkg/bridge"
	"github.com/entrhq/waypoint/pkg/config"
	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/engine"
	"github.com/entrhq/waypoint/pkg/live"
	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/safety"
)

const version = "0.1.0"

// Config holds the command-line configuration.
type Config struct {
	File        string
	URL         string
	Action      string
	Selector    string
	Text        string
	Value       string
	Direction   string
	WaitMillis  int
	Message     string
	ConfigPath  string
	Headless    bool
	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("Waypoint v%s\n", version)
		return
	}

	// Load environment from .env if present; missing files are fine.
	_ = godotenv.Load()

	if err := cfg.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.File, "file", "", "Path to a local HTML file to resolve against")
	flag.StringVar(&cfg.URL, "url", "", "URL to open in a live browser session")
	flag.StringVar(&cfg.Action, "action", "", "Action to perform: scrape, click, type, scroll, wait, highlight, summarize, finish")
	flag.StringVar(&cfg.Selector, "selector", "", "Structural selector fallback for the target")
	flag.StringVar(&cfg.Text, "text", "", "Visible text or label identifying the target")
	flag.StringVar(&cfg.Value, "value", "", "Value to write for type actions")
	flag.StringVar(&cfg.Direction, "direction", "", "Scroll direction: up or down")
	flag.IntVar(&cfg.WaitMillis, "wait-ms", 0, "Delay override for wait actions, in milliseconds")
	flag.StringVar(&cfg.Message, "message", "", "Raw JSON bridge message (overrides the action flags)")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to config file (default ~/.waypoint/config.yaml)")
	flag.BoolVar(&cfg.Headless, "headless", true, "Run the live browser headless")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	flag.Parse()
	return cfg
}

func (c Config) validate() error {
	if c.File == "" && c.URL == "" {
		return fmt.Errorf("one of -file or -url is required")
	}
	if c.File != "" && c.URL != "" {
		return fmt.Errorf("-file and -url are mutually exclusive")
	}
	if c.Action == "" && c.Message == "" {
		return fmt.Errorf("one of -action or -message is required")
	}
	return nil
}

func run(cfg Config) error {
	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	logger, logErr := logging.NewLogger("cli")
	if logErr != nil {
		log.Printf("Warning: file logging unavailable: %v", logErr)
	}
	defer logger.Close()

	registry := safety.NewRegistry(fileCfg.Safety.HistorySize)
	eng, err := engine.New(registry, fileCfg.EngineOptions(), logger)
	if err != nil {
		return err
	}

	provider, cleanup, err := scopeProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	dispatcher, err := bridge.NewDispatcher(eng, provider, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	raw := []byte(cfg.Message)
	if cfg.Message == "" {
		raw, err = json.Marshal(bridge.Message{
			Type: bridge.TypeAction,
			Action: &engine.Descriptor{
				Action:     engine.ActionKind(cfg.Action),
				Selector:   cfg.Selector,
				Text:       cfg.Text,
				Value:      cfg.Value,
				Direction:  engine.Direction(cfg.Direction),
				WaitMillis: cfg.WaitMillis,
			},
		})
		if err != nil {
			return err
		}
	}

	reply, err := dispatcher.HandleJSON(ctx, raw)
	if err != nil {
		return err
	}
	fmt.Println(string(reply))
	return nil
}

// scopeProvider builds the root-scope source for the chosen backend and
// returns a cleanup for whatever it opened.
func scopeProvider(cfg Config, logger *logging.Logger) (bridge.ScopeProvider, func(), error) {
	if cfg.File != "" {
		raw, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", cfg.File, err)
		}
		provider := func(ctx context.Context) (dom.Scope, error) {
			return dom.ParseString(string(raw), dom.WithURL("file://"+cfg.File))
		}
		return provider, func() {}, nil
	}

	manager := live.NewManager()
	if err := manager.Initialize(); err != nil {
		return nil, nil, err
	}
	session, err := manager.StartSession("cli", live.SessionOptions{Headless: cfg.Headless})
	if err != nil {
		manager.Shutdown()
		return nil, nil, err
	}
	if err := session.Navigate(cfg.URL, live.NavigateOptions{WaitUntil: "load"}); err != nil {
		manager.Shutdown()
		return nil, nil, err
	}
	logger.Infof("opened %s in live session", cfg.URL)

	provider := func(ctx context.Context) (dom.Scope, error) {
		return session.RootScope()
	}
	cleanup := func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
	return provider, cleanup, nil
}
