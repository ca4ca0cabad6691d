package technicals

import (
	"context"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/pool"
)

// Enricher attaches technical snapshots to fundamentals records. Symbols are
// fetched concurrently across a bounded pool; each symbol tries the exchange
// venues in priority order until one returns a usable analysis.
type Enricher struct {
	analyzer   Analyzer
	exchanges  []string
	maxWorkers int
}

// NewEnricher creates an enricher querying the given venues in order.
func NewEnricher(analyzer Analyzer, exchanges []string, maxWorkers int) *Enricher {
	return &Enricher{analyzer: analyzer, exchanges: exchanges, maxWorkers: maxWorkers}
}

// Enrich returns a copy of each input record augmented with a "technicals"
// field. A symbol missing from every venue gets an empty mapping; inputs are
// never mutated and a per-symbol miss never fails the batch.
func (e *Enricher) Enrich(ctx context.Context, records []map[string]any) []map[string]any {
	op := logger.StartOperation(ctx, "enrich-technicals", "records", len(records))
	ctx = op.GetContext()

	symbols := make([]string, 0, len(records))
	for _, record := range records {
		symbol, _ := record["ticker"].(string)
		symbols = append(symbols, symbol)
	}

	results := pool.Map(ctx, e.maxWorkers, symbols, e.fetchSymbol)

	snapshots := make(map[string]*Snapshot, len(results))
	for _, res := range results {
		if res.Err != nil || res.Value == nil {
			continue
		}
		snapshots[res.Value.Ticker] = res.Value
	}

	enriched := make([]map[string]any, 0, len(records))
	for _, record := range records {
		merged := make(map[string]any, len(record)+1)
		for k, v := range record {
			merged[k] = v
		}
		symbol, _ := record["ticker"].(string)
		if snap, ok := snapshots[symbol]; ok {
			merged["technicals"] = snap.Record()
		} else {
			merged["technicals"] = map[string]any{}
		}
		enriched = append(enriched, merged)
	}

	op.End("matched", len(snapshots))
	return enriched
}

// fetchSymbol tries each venue in priority order. All venues failing is not
// an error for the batch; it yields a nil snapshot and a logged warning.
func (e *Enricher) fetchSymbol(ctx context.Context, symbol string) (*Snapshot, error) {
	if symbol == "" {
		return nil, nil
	}

	var lastErr error
	for _, exchange := range e.exchanges {
		snapshot, err := e.analyzer.Analyze(ctx, symbol, exchange)
		if err != nil {
			lastErr = err
			continue
		}
		return snapshot, nil
	}

	logger.Warn(ctx, "Technical data unavailable", "symbol", symbol, "error", lastErr)
	return nil, nil
}
