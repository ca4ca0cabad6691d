package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"llm-stock-screener/internal/engine"
	"llm-stock-screener/internal/fundamentals"
	"llm-stock-screener/internal/history"
	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/notify"
	"llm-stock-screener/internal/report"
	"llm-stock-screener/internal/store"
	"llm-stock-screener/internal/technicals"
	"llm-stock-screener/internal/trace"
	"llm-stock-screener/internal/universe"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger, and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads the configuration file, falling back to defaults when the
// file does not exist.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(ctx, "Config file not found, using defaults", "path", path)
			return store.DefaultConfig(), nil
		}
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeScreener wires the fundamentals pipeline: Yahoo Finance provider,
// threshold filter, and batched screener.
func initializeScreener(cfg *store.Config) *fundamentals.Screener {
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	filter := fundamentals.NewFilter(fundamentals.ThresholdsFromConfig(cfg))
	filter.Debug = cfg.Screener.DebugEval

	provider := fundamentals.NewYahooClient(timeout)
	fetcher := fundamentals.NewFetcher(provider, filter, nil)

	return fundamentals.NewScreener(fetcher, cfg.Screener.BatchSize, cfg.Screener.MaxWorkers)
}

// initializeEnricher wires the TradingView technicals enricher.
func initializeEnricher(cfg *store.Config) *technicals.Enricher {
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	analyzer := technicals.NewTradingViewClient(timeout, cfg.Technicals.Interval)
	return technicals.NewEnricher(analyzer, cfg.Technicals.Exchanges, cfg.Technicals.MaxWorkers)
}

// initializeGenerator selects the report generator from config.
func initializeGenerator(ctx context.Context, cfg *store.Config) (report.Generator, error) {
	gen, err := report.NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.Provider == "NOOP" {
		logger.Warn(ctx, "No LLM provider configured - reports will be plain tables")
	}
	return gen, nil
}

// initializeNotifier builds the Telegram notifier from environment variables.
// Returns a disabled notifier when credentials are absent.
func initializeNotifier(ctx context.Context) *notify.Telegram {
	tg := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
	if !tg.Enabled() {
		logger.Info(ctx, "Telegram credentials not set - notifications disabled")
	}
	return tg
}

// initializeEngine assembles the full analysis cycle.
func initializeEngine(ctx context.Context, cfg *store.Config) (*engine.Engine, error) {
	generator, err := initializeGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	return engine.New(
		cfg,
		universe.NewResolver(cfg),
		initializeScreener(cfg),
		initializeEnricher(cfg),
		report.NewMarketFetcher(timeout),
		generator,
		history.NewStore(cfg.Storage.HistoryFile),
		initializeNotifier(ctx),
	), nil
}
