package fundamentals

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"llm-stock-screener/internal/api"
)

// stubProvider serves canned data and can fail the first N Info calls.
type stubProvider struct {
	info       *Info
	sheet      BalanceSheet
	sheetErr   error
	failFirst  int
	infoCalls  int
	sheetCalls int
}

func (p *stubProvider) Info(ctx context.Context, symbol string) (*Info, error) {
	p.infoCalls++
	if p.infoCalls <= p.failFirst {
		return nil, errors.New("simulated provider outage")
	}
	return p.info, nil
}

func (p *stubProvider) BalanceSheet(ctx context.Context, symbol string) (BalanceSheet, error) {
	p.sheetCalls++
	return p.sheet, p.sheetErr
}

// immediatePolicy retries without waiting and records the backoff schedule.
func immediatePolicy(slept *[]time.Duration) *api.RetryPolicy {
	p := api.DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		if slept != nil {
			*slept = append(*slept, d)
		}
		return nil
	}
	return p
}

// passingInfo has every metric inside the default thresholds except the
// current ratio, which must come from the balance sheet.
func passingInfo() *Info {
	return &Info{
		ShortName:    str("Test Corp"),
		CurrentPrice: f64(50),
		TrailingPE:   f64(10),
		PriceToBook:  f64(1.2),
		TotalDebt:    f64(40),
		TotalAssets:  f64(200),
	}
}

func TestFetchDerivesCurrentRatioFromBalanceSheet(t *testing.T) {
	provider := &stubProvider{
		info: passingInfo(),
		sheet: BalanceSheet{
			LineTotalCurrentAssets:      150,
			LineTotalCurrentLiabilities: 100,
		},
	}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stock == nil {
		t.Fatal("Expected stock to pass the filter")
	}
	if stock.CurrentRatio == nil || *stock.CurrentRatio != 1.5 {
		t.Errorf("Expected derived current ratio 1.5, got %v", stock.CurrentRatio)
	}
	if stock.DebtToAssets == nil || *stock.DebtToAssets != 0.2 {
		t.Errorf("Expected debt-to-assets 0.2, got %v", stock.DebtToAssets)
	}
}

func TestFetchRejectsWhenLiabilitiesAreZero(t *testing.T) {
	provider := &stubProvider{
		info: passingInfo(),
		sheet: BalanceSheet{
			LineTotalCurrentAssets:      150,
			LineTotalCurrentLiabilities: 0,
		},
	}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stock != nil {
		t.Error("Expected rejection when the current ratio cannot be derived")
	}
}

func TestFetchPrefersDirectCurrentRatio(t *testing.T) {
	info := passingInfo()
	info.CurrentRatio = f64(2.5)
	provider := &stubProvider{info: info}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stock == nil || stock.CurrentRatio == nil || *stock.CurrentRatio != 2.5 {
		t.Fatalf("Expected the directly-supplied ratio, got %+v", stock)
	}
	if provider.sheetCalls != 0 {
		t.Errorf("Expected no balance-sheet fetch, got %d", provider.sheetCalls)
	}
}

func TestFetchLoadsBalanceSheetAtMostOnce(t *testing.T) {
	info := passingInfo()
	info.TotalAssets = nil // both derivations now need the sheet
	provider := &stubProvider{
		info: info,
		sheet: BalanceSheet{
			LineTotalCurrentAssets:      300,
			LineTotalCurrentLiabilities: 100,
			LineTotalAssets:             200,
		},
	}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	if _, err := fetcher.Fetch(context.Background(), "TEST"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider.sheetCalls != 1 {
		t.Errorf("Expected exactly one balance-sheet fetch, got %d", provider.sheetCalls)
	}
}

func TestFetchMissingStatementsMeansAbsentRatios(t *testing.T) {
	info := passingInfo()
	info.TotalDebt = nil
	provider := &stubProvider{info: info, sheet: nil} // no statements published
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stock != nil {
		t.Error("Expected rejection when ratios cannot be resolved")
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var slept []time.Duration
	provider := &stubProvider{
		info:      passingInfo(),
		sheet:     BalanceSheet{LineTotalCurrentAssets: 150, LineTotalCurrentLiabilities: 100},
		failFirst: 2,
	}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(&slept))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if stock == nil {
		t.Fatal("Expected a passing stock")
	}
	if provider.infoCalls != 3 {
		t.Errorf("Expected 3 attempts, got %d", provider.infoCalls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d backoff waits, got %d", len(want), len(slept))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Backoff %d: expected %v, got %v", i, want[i], slept[i])
		}
	}
}

func TestFetchPropagatesErrorAfterExhaustion(t *testing.T) {
	provider := &stubProvider{failFirst: 10}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	_, err := fetcher.Fetch(context.Background(), "TEST")
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "all 3 attempts failed") {
		t.Errorf("Expected exhaustion error, got %v", err)
	}
	if provider.infoCalls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", provider.infoCalls)
	}
}

func TestPriceFallbackOrder(t *testing.T) {
	info := passingInfo()
	info.CurrentRatio = f64(2)
	info.CurrentPrice = f64(0) // zero counts as missing
	info.RegularMarketPrice = f64(42)
	provider := &stubProvider{info: info}
	fetcher := NewFetcher(provider, defaultFilter(), immediatePolicy(nil))

	stock, err := fetcher.Fetch(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stock == nil || stock.Price == nil || *stock.Price != 42 {
		t.Fatalf("Expected regular market price fallback, got %+v", stock)
	}
}
