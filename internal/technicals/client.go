// Package technicals enriches screened candidates with technical-analysis
// ratings and indicators from the TradingView scanner.
package technicals

import (
	"context"
	"fmt"
	"time"

	"llm-stock-screener/internal/api"
)

const scannerBaseURL = "https://scanner.tradingview.com"

// Snapshot is one technical-analysis result for a symbol. Nil fields were not
// reported by the provider.
type Snapshot struct {
	Ticker         string
	Rating         *string
	Oscillators    *string
	MovingAverages *string
	RSI            *float64
	EMA20          *float64
	EMA50          *float64
	MACD           *float64
}

// Record converts the snapshot to a plain key-value record for the report
// payload.
func (s *Snapshot) Record() map[string]any {
	return map[string]any{
		"ticker":          s.Ticker,
		"rating":          deref(s.Rating),
		"oscillators":     deref(s.Oscillators),
		"moving_averages": deref(s.MovingAverages),
		"rsi":             deref(s.RSI),
		"ema20":           deref(s.EMA20),
		"ema50":           deref(s.EMA50),
		"macd":            deref(s.MACD),
	}
}

// Analyzer produces a technical snapshot for a (symbol, exchange) pair.
type Analyzer interface {
	Analyze(ctx context.Context, symbol, exchange string) (*Snapshot, error)
}

// TradingViewClient implements Analyzer against the TradingView scanner API
// for the america screener.
type TradingViewClient struct {
	client   *api.Client
	baseURL  string
	interval string
}

// NewTradingViewClient creates a scanner client. interval follows TradingView
// conventions; "1D" is the daily interval.
func NewTradingViewClient(timeout time.Duration, interval string) *TradingViewClient {
	return &TradingViewClient{
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		baseURL:  scannerBaseURL,
		interval: interval,
	}
}

// Scanner columns in request order. Daily columns carry no interval suffix.
var baseColumns = []string{
	"Recommend.All",
	"Recommend.Other",
	"Recommend.MA",
	"RSI",
	"EMA20",
	"EMA50",
	"MACD.macd",
}

type scanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
		Query   struct {
			Types []string `json:"types"`
		} `json:"query"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type scanResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		Symbol string     `json:"s"`
		Values []*float64 `json:"d"`
	} `json:"data"`
}

// Analyze queries the scanner for one symbol on one exchange venue.
func (c *TradingViewClient) Analyze(ctx context.Context, symbol, exchange string) (*Snapshot, error) {
	var req scanRequest
	req.Symbols.Tickers = []string{fmt.Sprintf("%s:%s", exchange, symbol)}
	req.Symbols.Query.Types = []string{}
	req.Columns = c.columns()

	resp, err := c.client.POST(ctx, c.baseURL+"/america/scan", req, api.TradingViewHeaders())
	if err != nil {
		return nil, err
	}

	var scan scanResponse
	if err := resp.ParseJSON(&scan); err != nil {
		return nil, err
	}
	if len(scan.Data) == 0 || len(scan.Data[0].Values) < len(req.Columns) {
		return nil, fmt.Errorf("no analysis for %s:%s", exchange, symbol)
	}

	values := scan.Data[0].Values
	return &Snapshot{
		Ticker:         symbol,
		Rating:         ratingLabel(values[0]),
		Oscillators:    ratingLabel(values[1]),
		MovingAverages: ratingLabel(values[2]),
		RSI:            values[3],
		EMA20:          values[4],
		EMA50:          values[5],
		MACD:           values[6],
	}, nil
}

func (c *TradingViewClient) columns() []string {
	if c.interval == "" || c.interval == "1D" {
		return baseColumns
	}
	suffixed := make([]string, len(baseColumns))
	for i, col := range baseColumns {
		suffixed[i] = col + "|" + c.interval
	}
	return suffixed
}

// ratingLabel maps a scanner recommendation value in [-1, 1] to the
// categorical label TradingView displays.
func ratingLabel(value *float64) *string {
	if value == nil {
		return nil
	}
	var label string
	switch v := *value; {
	case v >= 0.5:
		label = "STRONG_BUY"
	case v >= 0.1:
		label = "BUY"
	case v >= -0.1:
		label = "NEUTRAL"
	case v >= -0.5:
		label = "SELL"
	default:
		label = "STRONG_SELL"
	}
	return &label
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
