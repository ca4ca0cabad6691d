package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/store"
)

// Request carries everything the report needs.
type Request struct {
	Stocks         []map[string]any `json:"screened_stocks"`
	Market         MarketContext    `json:"market_context"`
	NewSymbols     []string         `json:"new_symbols"`
	DroppedSymbols []string         `json:"dropped_symbols"`
}

// Generator produces the natural-language Markdown report.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// NewGenerator selects the generator backend from config. GEMINI and OPENAI
// take their API keys from the environment; NOOP needs none.
func NewGenerator(ctx context.Context, cfg *store.Config) (Generator, error) {
	switch cfg.LLM.Provider {
	case "GEMINI":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required but missing")
		}
		return NewGeminiGenerator(ctx, apiKey, cfg.LLM.Model, cfg.LLM.Temperature)
	case "OPENAI":
		return NewOpenAIGenerator(cfg), nil
	default:
		logger.Warn(ctx, "No LLM provider configured - using Noop generator")
		return NewNoopGenerator(), nil
	}
}

const systemPrompt = "You are a disciplined investment analyst. You follow compliance guidelines and explain conclusions without emotion."

// buildPrompt embeds the cycle data as JSON and spells out the required
// Markdown structure.
func buildPrompt(req Request) (string, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("Use the provided data (JSON below) to prepare a structured Markdown report.\n\n")
	b.WriteString("Response requirements (Markdown):\n")
	b.WriteString("1. Brief market state (one paragraph, mention the S&P 500 trend).\n")
	b.WriteString("2. Screener results table (ticker, sector, price, P/E, P/B, Current Ratio, Debt/Assets, technical rating, RSI, EMA20).\n")
	b.WriteString("3. A dedicated section for new ideas (new_symbols) with a deeper look at each company.\n")
	b.WriteString("4. A risk section (sector-wide plus individual).\n")
	b.WriteString("5. If dropped_symbols is non-empty, mention why they may have fallen out.\n\n")
	b.WriteString("Data:\n")
	b.Write(payload)
	b.WriteString("\n")
	return b.String(), nil
}

// NoopGenerator renders a deterministic Markdown table without calling any
// LLM backend. Used when no provider is configured.
type NoopGenerator struct{}

// NewNoopGenerator creates the fallback generator.
func NewNoopGenerator() *NoopGenerator {
	return &NoopGenerator{}
}

// Generate renders the screener results as a plain table.
func (g *NoopGenerator) Generate(_ context.Context, req Request) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Screener Report — %s\n\n", time.Now().UTC().Format("2006-01-02")))

	if req.Market.ChangePct5D != nil {
		b.WriteString(fmt.Sprintf("%s 5-day change: %+.2f%%\n\n", req.Market.Index, *req.Market.ChangePct5D))
	}

	b.WriteString("| Ticker | Sector | Price | P/E | P/B | Rating |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, stock := range req.Stocks {
		rating := any(nil)
		if tech, ok := stock["technicals"].(map[string]any); ok {
			rating = tech["rating"]
		}
		b.WriteString(fmt.Sprintf("| %v | %v | %v | %v | %v | %v |\n",
			stock["ticker"], stock["sector"], stock["price"],
			stock["trailing_pe"], stock["price_to_book"], rating))
	}

	if len(req.NewSymbols) > 0 {
		b.WriteString(fmt.Sprintf("\nNew symbols: %s\n", strings.Join(req.NewSymbols, ", ")))
	}
	if len(req.DroppedSymbols) > 0 {
		b.WriteString(fmt.Sprintf("\nDropped symbols: %s\n", strings.Join(req.DroppedSymbols, ", ")))
	}
	return b.String(), nil
}
