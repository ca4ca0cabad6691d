// Package report builds the analysis-cycle report: market context, prompt
// construction, and the LLM generator backends.
package report

import (
	"context"
	"fmt"
	"time"

	"llm-stock-screener/internal/api"
	"llm-stock-screener/internal/logger"
)

const (
	chartBaseURL = "https://query1.finance.yahoo.com"
	marketIndex  = "^GSPC"
)

// MarketContext summarizes broad-market state for the report prompt.
type MarketContext struct {
	Index       string   `json:"index"`
	ChangePct5D *float64 `json:"change_pct_5d"`
	Timestamp   string   `json:"timestamp"`
}

// MarketFetcher retrieves the 5-day index change from the Yahoo chart API.
type MarketFetcher struct {
	client  *api.Client
	baseURL string
}

// NewMarketFetcher creates a market-context fetcher.
func NewMarketFetcher(timeout time.Duration) *MarketFetcher {
	return &MarketFetcher{
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		baseURL: chartBaseURL,
	}
}

type chartEnvelope struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Fetch returns the market context. A provider failure yields a context with
// no change figure; it is never fatal to the cycle.
func (m *MarketFetcher) Fetch(ctx context.Context) MarketContext {
	result := MarketContext{
		Index:     marketIndex,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", m.baseURL, "%5EGSPC")
	resp, err := m.client.GET(ctx, reqURL, api.YahooFinanceHeaders())
	if err != nil {
		logger.Warn(ctx, "Failed to fetch market context", "index", marketIndex, "error", err)
		return result
	}

	var envelope chartEnvelope
	if err := resp.ParseJSON(&envelope); err != nil {
		logger.Warn(ctx, "Failed to parse market context", "error", err)
		return result
	}

	result.ChangePct5D = fiveDayChange(envelope)
	return result
}

// fiveDayChange computes the percent change from the first to the last
// reported close in the window.
func fiveDayChange(envelope chartEnvelope) *float64 {
	results := envelope.Chart.Result
	if len(results) == 0 || len(results[0].Indicators.Quote) == 0 {
		return nil
	}

	var closes []float64
	for _, c := range results[0].Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	if len(closes) < 2 || closes[0] == 0 {
		return nil
	}

	change := (closes[len(closes)-1] - closes[0]) / closes[0] * 100
	return &change
}
