package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"polymarket-updown-bot/internal/browser"
	"polymarket-updown-bot/internal/engine"
	"polymarket-updown-bot/internal/feed"
	"polymarket-updown-bot/internal/gamma"
	"polymarket-updown-bot/internal/gamma/gammaobs"
	"polymarket-updown-bot/internal/human"
	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/stake"
	"polymarket-updown-bot/internal/store"
	"polymarket-updown-bot/internal/trace"
	"polymarket-updown-bot/internal/tradelog"
	"polymarket-updown-bot/internal/ui"
)

// initializeSystem loads the environment and brings up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// buildOrchestrator wires every collaborator for one asset. The returned
// cleanup closes the browser session.
func buildOrchestrator(ctx context.Context, configPath, assetKey string) (*engine.Orchestrator, func(), error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	asset, err := cfg.Asset(assetKey)
	if err != nil {
		return nil, nil, err
	}

	// The log directory from config feeds the package-level writers.
	if os.Getenv("POLYBOT_LOG_DIR") == "" {
		os.Setenv("POLYBOT_LOG_DIR", cfg.Logging.LogDir)
	}
	compressOldLogs(ctx)

	displayNames := make(map[string]string, len(cfg.Assets))
	for key, a := range cfg.Assets {
		displayNames[key] = a.DisplayName
	}

	client := gamma.NewClient(cfg.API.GammaEventsURL, cfg.API.GammaMarketsURL,
		time.Duration(cfg.Discovery.RequestTimeoutSeconds)*time.Second)
	discoverer := gammaobs.Wrap(gamma.NewService(client, cfg.API.PolymarketBaseURL, gamma.Options{
		PageSize:      cfg.Discovery.PageSize,
		MaxPages:      cfg.Discovery.MaxPages,
		MaxCandidates: cfg.Discovery.MaxCandidates,
		MaxRoundSpan:  time.Duration(cfg.Discovery.MaxRoundSpanHours) * time.Hour,
		DisplayNames:  displayNames,
	}))

	// A missing browser degrades, not kills: discovery still runs over the
	// API levels and round state falls back to manual entry.
	var act interfaces.Actuator
	var page interfaces.RoundPage
	chrome, err := browser.NewChromeActuator(ctx, browser.Options{
		Headless:   cfg.Browser.Headless,
		ProfileDir: cfg.Browser.ProfileDir,
	})
	if err != nil {
		logger.Warn(ctx, "browser unavailable, running without page automation",
			"error", err.Error())
	} else {
		act = chrome
		page = ui.NewPage(act,
			time.Duration(cfg.Browser.TimeoutMs)*time.Millisecond,
			asset.MinPriceSanity)
	}
	cleanup := func() {
		if chrome != nil {
			_ = chrome.Close(context.Background())
		}
	}

	state, err := store.OpenStateFile(cfg.Logging.StateFile, cfg.Stake.BaseStakeUSD)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open state file: %w", err)
	}
	ledger := stake.NewLedger(cfg.Stake.BaseStakeUSD, cfg.Stake.MaxStakeUSD,
		cfg.Stake.MaxWinStreak, cfg.Stake.ResetOnMaxStreak, state)

	priceFeed := feed.NewRTDSFeed(cfg.API.RTDSWebsocketURL, asset.Symbol, cfg.API.RTDSMaxRetries)
	operator := human.NewConsole(os.Stdin, os.Stdout)

	orch, err := engine.New(cfg, assetKey, discoverer, priceFeed, act, page, operator, ledger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return orch, cleanup, nil
}

// compressOldLogs gzips logs past the retention window when configured.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("POLYBOT_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "failed to compress old logs", "error", err.Error())
		}
	}
}
