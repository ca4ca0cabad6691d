// Package universe resolves the candidate universe of ticker symbols from a
// primary HTML listing with a CSV feed fallback.
package universe

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"llm-stock-screener/internal/api"
	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/store"
)

// Resolver obtains the current list of S&P 500 constituents. The primary
// source is the Wikipedia constituents table; on any failure the DataHub CSV
// feed is used instead. Duplicates are not filtered here.
type Resolver struct {
	wikipediaURL string
	datahubURL   string
	client       *api.Client
	timeout      time.Duration
}

// NewResolver creates a resolver from config.
func NewResolver(cfg *store.Config) *Resolver {
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return &Resolver{
		wikipediaURL: cfg.Universe.WikipediaURL,
		datahubURL:   cfg.Universe.DataHubURL,
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		timeout: timeout,
	}
}

// Resolve returns the ordered universe of symbols, or an empty slice when
// both sources fail. The caller decides whether an empty universe is fatal.
func (r *Resolver) Resolve(ctx context.Context) []string {
	tickers := r.fromWikipedia(ctx)
	if len(tickers) > 0 {
		return tickers
	}

	logger.Warn(ctx, "Falling back to DataHub constituents feed")
	return r.fromDataHub(ctx)
}

// fromWikipedia scrapes the constituents table. Symbols come from the first
// column of each data row; the ownership-class separator is normalized
// ("BRK.B" -> "BRK-B") to match market-data provider conventions.
func (r *Resolver) fromWikipedia(ctx context.Context) []string {
	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(r.timeout)

	c.OnRequest(func(req *colly.Request) {
		req.Headers.Set("User-Agent", api.BrowserHeaders()["User-Agent"])
	})

	var tickers []string
	collected := false

	// The id selector matches the canonical table; the class selector is the
	// fallback when the page drops the id. Guard against matching both.
	c.OnHTML("table#constituents, table.wikitable.sortable", func(e *colly.HTMLElement) {
		if collected {
			return
		}
		collected = true
		tickers = symbolsFromTable(e.DOM)
	})

	c.OnError(func(resp *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Failed to pull Wikipedia constituents", err, "url", r.wikipediaURL)
	})

	if err := c.Visit(r.wikipediaURL); err != nil {
		logger.Warn(ctx, "Wikipedia constituents fetch failed", "error", err)
		return nil
	}
	c.Wait()

	if !collected {
		logger.Warn(ctx, "Wikipedia response didn't contain the constituents table")
		return nil
	}

	return tickers
}

// symbolsFromTable extracts the first-column symbol of every data row.
func symbolsFromTable(table *goquery.Selection) []string {
	var tickers []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		symbol := strings.TrimSpace(cells.First().Text())
		if symbol == "" {
			return
		}
		tickers = append(tickers, strings.ReplaceAll(symbol, ".", "-"))
	})
	return tickers
}

// fromDataHub downloads the constituents CSV and extracts the Symbol column,
// upper-cased and trimmed.
func (r *Resolver) fromDataHub(ctx context.Context) []string {
	resp, err := r.client.GET(ctx, r.datahubURL)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to download constituents CSV", err, "url", r.datahubURL)
		return nil
	}

	reader := csv.NewReader(bytes.NewReader(resp.Body))
	header, err := reader.Read()
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read constituents CSV header", err)
		return nil
	}

	symbolCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "Symbol") {
			symbolCol = i
			break
		}
	}
	if symbolCol < 0 {
		logger.Warn(ctx, "Constituents CSV has no Symbol column")
		return nil
	}

	var tickers []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn(ctx, "Skipping malformed CSV row", "error", err)
			continue
		}
		if symbolCol >= len(record) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[symbolCol]))
		if symbol != "" {
			tickers = append(tickers, symbol)
		}
	}
	return tickers
}
