package fundamentals

import (
	"context"
	"fmt"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/store"
)

// Thresholds are the fixed screening constraints. They are configuration
// constants for a run, never derived per-run.
type Thresholds struct {
	PriceMin        float64
	PriceMax        float64
	PEMax           float64
	PBMax           float64
	CurrentRatioMin float64
	DebtToAssetsMax float64
}

// ThresholdsFromConfig extracts the screening thresholds from config.
func ThresholdsFromConfig(cfg *store.Config) Thresholds {
	f := cfg.Screener.Filters
	return Thresholds{
		PriceMin:        f.PriceMin,
		PriceMax:        f.PriceMax,
		PEMax:           f.PEMax,
		PBMax:           f.PBMax,
		CurrentRatioMin: f.CurrentRatioMin,
		DebtToAssetsMax: f.DebtToAssetsMax,
	}
}

// Filter applies the screening thresholds to a metric record.
type Filter struct {
	thresholds Thresholds
	// Debug enables a per-metric pass/fail breakdown log. Diagnostic only;
	// it never changes the accept/reject outcome.
	Debug bool
}

// NewFilter creates a filter with the given thresholds.
func NewFilter(t Thresholds) *Filter {
	return &Filter{thresholds: t}
}

// Passes reports whether the stock satisfies every threshold. An absent
// operand is a rejection, not a neutral pass.
func (f *Filter) Passes(s *ScreenedStock) bool {
	t := f.thresholds
	if s.TrailingPE == nil || !(0 < *s.TrailingPE && *s.TrailingPE <= t.PEMax) {
		return false
	}
	if s.PriceToBook == nil || !(0 < *s.PriceToBook && *s.PriceToBook <= t.PBMax) {
		return false
	}
	if s.CurrentRatio == nil || *s.CurrentRatio < t.CurrentRatioMin {
		return false
	}
	if s.DebtToAssets == nil || *s.DebtToAssets > t.DebtToAssetsMax {
		return false
	}
	if s.Price == nil || *s.Price < t.PriceMin || *s.Price > t.PriceMax {
		return false
	}
	return true
}

// Explain logs a per-metric breakdown of the evaluation.
func (f *Filter) Explain(ctx context.Context, s *ScreenedStock) {
	t := f.thresholds
	checks := []struct {
		label  string
		value  *float64
		target string
		ok     bool
	}{
		{"price", s.Price, fmt.Sprintf("%.0f-%.0f", t.PriceMin, t.PriceMax),
			s.Price != nil && *s.Price >= t.PriceMin && *s.Price <= t.PriceMax},
		{"trailing_pe", s.TrailingPE, fmt.Sprintf("0-%.0f", t.PEMax),
			s.TrailingPE != nil && 0 < *s.TrailingPE && *s.TrailingPE <= t.PEMax},
		{"price_to_book", s.PriceToBook, fmt.Sprintf("0-%.0f", t.PBMax),
			s.PriceToBook != nil && 0 < *s.PriceToBook && *s.PriceToBook <= t.PBMax},
		{"current_ratio", s.CurrentRatio, fmt.Sprintf(">= %.1f", t.CurrentRatioMin),
			s.CurrentRatio != nil && *s.CurrentRatio >= t.CurrentRatioMin},
		{"debt_to_assets", s.DebtToAssets, fmt.Sprintf("<= %.1f", t.DebtToAssetsMax),
			s.DebtToAssets != nil && *s.DebtToAssets <= t.DebtToAssetsMax},
	}

	fields := []any{"symbol", s.Ticker}
	for _, c := range checks {
		verdict := "FAIL"
		if c.ok {
			verdict = "OK"
		}
		value := "absent"
		if c.value != nil {
			value = fmt.Sprintf("%.4f", *c.value)
		}
		fields = append(fields, c.label, fmt.Sprintf("%s | target %s -> %s", value, c.target, verdict))
	}
	logger.Info(ctx, "Fundamentals evaluation breakdown", fields...)
}
