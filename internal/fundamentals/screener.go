package fundamentals

import (
	"context"
	"sort"
	"strings"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/pool"
)

// Screener partitions the universe into fixed-size batches and screens them
// across a bounded worker pool. Symbols are fetched sequentially within a
// batch; batches run concurrently.
type Screener struct {
	fetcher    *Fetcher
	batchSize  int
	maxWorkers int
}

// NewScreener creates the batch orchestrator.
func NewScreener(fetcher *Fetcher, batchSize, maxWorkers int) *Screener {
	return &Screener{fetcher: fetcher, batchSize: batchSize, maxWorkers: maxWorkers}
}

// Screen evaluates the (optionally limited) universe and returns plain
// records for the accepted stocks, sorted by price descending.
//
// A limited subset that yields zero candidates is re-run once against the
// full universe: small dry-run subsets may by chance contain no qualifying
// stocks. Zero candidates from the full universe is returned as-is; the
// caller decides whether that is fatal.
func (s *Screener) Screen(ctx context.Context, universe []string, limit int) []map[string]any {
	op := logger.StartOperation(ctx, "screen-fundamentals", "universe", len(universe), "limit", limit)
	ctx = op.GetContext()

	subset := universe
	limited := limit > 0 && limit < len(universe)
	if limited {
		subset = universe[:limit]
	}

	screened := s.screen(ctx, subset)
	if len(screened) == 0 && limited {
		logger.Warn(ctx, "No matches inside the limited subset, retrying full universe", "limit", limit)
		screened = s.screen(ctx, universe)
	}

	symbols := make([]string, 0, len(screened))
	for _, stock := range screened {
		symbols = append(symbols, stock.Ticker)
	}
	logger.Info(ctx, "Fundamental candidates", "count", len(screened), "symbols", strings.Join(symbols, ","))

	// Display-ordering convenience, not a ranking signal. Ties are unordered.
	sort.SliceStable(screened, func(i, j int) bool {
		return screened[i].PriceOrZero() > screened[j].PriceOrZero()
	})

	records := make([]map[string]any, 0, len(screened))
	for _, stock := range screened {
		records = append(records, stock.Record())
	}

	op.End("candidates", len(records))
	return records
}

func (s *Screener) screen(ctx context.Context, symbols []string) []*ScreenedStock {
	batches := splitBatches(symbols, s.batchSize)

	results := pool.Map(ctx, s.maxWorkers, batches, s.fetchBatch)

	var screened []*ScreenedStock
	for _, res := range results {
		if res.Err != nil {
			// Batches contain their own per-symbol failures; this only fires
			// when the context ended before a batch was dispatched.
			logger.Warn(ctx, "Batch not processed", "error", res.Err)
			continue
		}
		screened = append(screened, res.Value...)
	}
	return screened
}

// fetchBatch screens one batch sequentially. A symbol whose fetch fails after
// retries is logged and excluded; it never aborts the batch.
func (s *Screener) fetchBatch(ctx context.Context, symbols []string) ([]*ScreenedStock, error) {
	var results []*ScreenedStock
	for _, symbol := range symbols {
		stock, err := s.fetcher.Fetch(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Skipping symbol due to error", "symbol", symbol, "error", err)
			continue
		}
		if stock != nil {
			logger.Candidate(ctx, stock.Ticker, stock.PriceOrZero())
			results = append(results, stock)
		}
	}
	return results, nil
}

func splitBatches(items []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
