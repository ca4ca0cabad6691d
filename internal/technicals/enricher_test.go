package technicals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"llm-stock-screener/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

// stubAnalyzer answers only for (symbol, exchange) pairs it knows about and
// records the venue order it was asked in.
type stubAnalyzer struct {
	mu       sync.Mutex
	known    map[string]*Snapshot // keyed "EXCHANGE:SYMBOL"
	attempts map[string][]string
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{
		known:    make(map[string]*Snapshot),
		attempts: make(map[string][]string),
	}
}

func (a *stubAnalyzer) Analyze(ctx context.Context, symbol, exchange string) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts[symbol] = append(a.attempts[symbol], exchange)
	if snap, ok := a.known[exchange+":"+symbol]; ok {
		return snap, nil
	}
	return nil, errors.New("no analysis")
}

func venues() []string { return []string{"NASDAQ", "NYSE", "AMEX"} }

func record(symbol string, price float64) map[string]any {
	return map[string]any{"ticker": symbol, "price": price}
}

func rating(label string) *string { return &label }

func TestEnrichAttachesSnapshotsBySymbol(t *testing.T) {
	analyzer := newStubAnalyzer()
	analyzer.known["NASDAQ:AAPL"] = &Snapshot{Ticker: "AAPL", Rating: rating("BUY")}
	analyzer.known["NYSE:KO"] = &Snapshot{Ticker: "KO", Rating: rating("NEUTRAL")}

	enricher := NewEnricher(analyzer, venues(), 4)
	enriched := enricher.Enrich(context.Background(), []map[string]any{
		record("AAPL", 50),
		record("KO", 60),
	})

	if len(enriched) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(enriched))
	}
	for i, want := range []string{"BUY", "NEUTRAL"} {
		technicals, ok := enriched[i]["technicals"].(map[string]any)
		if !ok {
			t.Fatalf("Record %d: missing technicals mapping", i)
		}
		if technicals["rating"] != want {
			t.Errorf("Record %d: expected rating %s, got %v", i, want, technicals["rating"])
		}
	}
}

func TestEnrichTriesVenuesInPriorityOrder(t *testing.T) {
	analyzer := newStubAnalyzer()
	analyzer.known["AMEX:XYZ"] = &Snapshot{Ticker: "XYZ"}

	NewEnricher(analyzer, venues(), 1).Enrich(context.Background(), []map[string]any{record("XYZ", 20)})

	want := []string{"NASDAQ", "NYSE", "AMEX"}
	got := analyzer.attempts["XYZ"]
	if len(got) != len(want) {
		t.Fatalf("Expected %d venue attempts, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Attempt %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEnrichStopsAtFirstVenueHit(t *testing.T) {
	analyzer := newStubAnalyzer()
	analyzer.known["NASDAQ:AAPL"] = &Snapshot{Ticker: "AAPL"}

	NewEnricher(analyzer, venues(), 1).Enrich(context.Background(), []map[string]any{record("AAPL", 50)})

	if got := analyzer.attempts["AAPL"]; len(got) != 1 {
		t.Errorf("Expected a single venue attempt, got %v", got)
	}
}

func TestEnrichEmptyMappingWhenAllVenuesMiss(t *testing.T) {
	analyzer := newStubAnalyzer()
	enricher := NewEnricher(analyzer, venues(), 2)

	enriched := enricher.Enrich(context.Background(), []map[string]any{record("MISS", 30)})
	if len(enriched) != 1 {
		t.Fatalf("Expected the record to survive, got %d records", len(enriched))
	}
	technicals, ok := enriched[0]["technicals"].(map[string]any)
	if !ok {
		t.Fatal("Expected a technicals mapping")
	}
	if len(technicals) != 0 {
		t.Errorf("Expected empty mapping on total miss, got %v", technicals)
	}
	if enriched[0]["price"] != 30.0 {
		t.Errorf("Expected original fields preserved, got %v", enriched[0]["price"])
	}
}

func TestEnrichDoesNotMutateInputs(t *testing.T) {
	analyzer := newStubAnalyzer()
	analyzer.known["NASDAQ:AAPL"] = &Snapshot{Ticker: "AAPL"}

	input := []map[string]any{record("AAPL", 50)}
	NewEnricher(analyzer, venues(), 1).Enrich(context.Background(), input)

	if _, ok := input[0]["technicals"]; ok {
		t.Error("Expected input records to be left untouched")
	}
}

func TestEnrichManySymbolsConcurrently(t *testing.T) {
	analyzer := newStubAnalyzer()
	records := make([]map[string]any, 40)
	for i := range records {
		symbol := fmt.Sprintf("SYM%02d", i)
		records[i] = record(symbol, float64(i))
		analyzer.known["NASDAQ:"+symbol] = &Snapshot{Ticker: symbol}
	}

	enriched := NewEnricher(analyzer, venues(), 8).Enrich(context.Background(), records)
	if len(enriched) != 40 {
		t.Fatalf("Expected 40 records, got %d", len(enriched))
	}
	for i, rec := range enriched {
		if rec["ticker"] != records[i]["ticker"] {
			t.Errorf("Record %d: expected input order preserved, got %v", i, rec["ticker"])
		}
		technicals := rec["technicals"].(map[string]any)
		if technicals["ticker"] != rec["ticker"] {
			t.Errorf("Record %d: snapshot keyed to wrong symbol: %v", i, technicals["ticker"])
		}
	}
}
