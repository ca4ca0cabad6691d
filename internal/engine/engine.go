// Package engine drives one analysis cycle: screen fundamentals, enrich with
// technicals, diff against history, and generate the report.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"llm-stock-screener/internal/history"
	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/report"
	"llm-stock-screener/internal/store"
)

// UniverseResolver yields the candidate universe of ticker symbols.
type UniverseResolver interface {
	Resolve(ctx context.Context) []string
}

// Screener runs the fundamentals pipeline over the universe.
type Screener interface {
	Screen(ctx context.Context, universe []string, limit int) []map[string]any
}

// Enricher attaches technical snapshots to screened records.
type Enricher interface {
	Enrich(ctx context.Context, records []map[string]any) []map[string]any
}

// MarketFetcher supplies broad-market context for the report.
type MarketFetcher interface {
	Fetch(ctx context.Context) report.MarketContext
}

// Notifier pushes a cycle summary. Best-effort only.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Engine glues the pipeline stages together.
type Engine struct {
	cfg       *store.Config
	resolver  UniverseResolver
	screener  Screener
	enricher  Enricher
	market    MarketFetcher
	generator report.Generator
	history   *history.Store
	notifier  Notifier
}

// New creates an engine from its collaborators.
func New(cfg *store.Config, resolver UniverseResolver, screener Screener, enricher Enricher,
	market MarketFetcher, generator report.Generator, hist *history.Store, notifier Notifier) *Engine {
	return &Engine{
		cfg:       cfg,
		resolver:  resolver,
		screener:  screener,
		enricher:  enricher,
		market:    market,
		generator: generator,
		history:   hist,
		notifier:  notifier,
	}
}

// Run executes one analysis cycle and returns the path of the written
// report. Systemic failures (no universe, zero candidates, report generation
// failure) abort the cycle; no partial report is emitted.
func (e *Engine) Run(ctx context.Context, limit int) (string, error) {
	op := logger.StartOperation(ctx, "analysis-cycle", "limit", limit)
	ctx = op.GetContext()

	if err := e.ensureStorage(); err != nil {
		op.EndWithError(err)
		return "", fmt.Errorf("failed to prepare storage: %w", err)
	}

	universe := e.resolver.Resolve(ctx)
	if len(universe) == 0 {
		err := fmt.Errorf("failed to load S&P 500 tickers")
		op.EndWithError(err)
		return "", err
	}
	logger.Info(ctx, "Universe resolved", "symbols", len(universe))

	fundamentalsRecords := e.screener.Screen(ctx, universe, limit)
	logger.Info(ctx, "Fundamental screener produced candidates", "count", len(fundamentalsRecords))
	if len(fundamentalsRecords) == 0 {
		err := fmt.Errorf("screener returned no candidates")
		op.EndWithError(err)
		return "", err
	}

	enriched := e.enricher.Enrich(ctx, fundamentalsRecords)

	tickers := make([]string, 0, len(enriched))
	for _, record := range enriched {
		if symbol, ok := record["ticker"].(string); ok {
			tickers = append(tickers, symbol)
		}
	}

	previous := e.history.Load(ctx)
	newSymbols, droppedSymbols := history.Diff(previous, tickers)
	if err := e.history.Save(tickers); err != nil {
		op.EndWithError(err)
		return "", fmt.Errorf("failed to persist history: %w", err)
	}

	marketContext := e.market.Fetch(ctx)

	markdown, err := e.generator.Generate(ctx, report.Request{
		Stocks:         enriched,
		Market:         marketContext,
		NewSymbols:     newSymbols,
		DroppedSymbols: droppedSymbols,
	})
	if err != nil {
		op.EndWithError(err)
		return "", fmt.Errorf("report generation failed: %w", err)
	}

	reportPath, err := e.writeReport(markdown)
	if err != nil {
		op.EndWithError(err)
		return "", err
	}

	logger.Cycle(ctx, len(enriched), newSymbols, droppedSymbols, "report", reportPath)
	e.notify(ctx, len(enriched), newSymbols, droppedSymbols, reportPath)

	op.End("candidates", len(enriched), "report", reportPath)
	return reportPath, nil
}

func (e *Engine) ensureStorage() error {
	if err := os.MkdirAll(e.cfg.Storage.ReportsDir, 0755); err != nil {
		return err
	}
	return e.history.EnsureExists()
}

func (e *Engine) writeReport(markdown string) (string, error) {
	today := time.Now().UTC().Format("2006-01-02")
	reportPath := filepath.Join(e.cfg.Storage.ReportsDir, today+".md")
	if err := os.WriteFile(reportPath, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return reportPath, nil
}

// notify sends a short cycle summary. Failures are logged, never fatal.
func (e *Engine) notify(ctx context.Context, candidates int, newSymbols, droppedSymbols []string, reportPath string) {
	if e.notifier == nil || !e.notifier.Enabled() {
		return
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("*Screener cycle complete*\nCandidates: %d\n", candidates))
	if len(newSymbols) > 0 {
		b.WriteString(fmt.Sprintf("New: %s\n", strings.Join(newSymbols, ", ")))
	}
	if len(droppedSymbols) > 0 {
		b.WriteString(fmt.Sprintf("Dropped: %s\n", strings.Join(droppedSymbols, ", ")))
	}
	b.WriteString(fmt.Sprintf("Report: %s", reportPath))

	if err := e.notifier.SendWithRetry(ctx, b.String(), 3); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send cycle notification", err)
	}
}
