package fundamentals

import (
	"context"

	"llm-stock-screener/internal/api"
)

// Fetcher retrieves the fundamentals snapshot for one symbol, derives ratios
// the provider doesn't supply directly, and evaluates the filter in the same
// pass. Transient fetch errors are retried per the policy; exhaustion
// propagates to the orchestrator, which skips the symbol.
type Fetcher struct {
	provider MarketData
	filter   *Filter
	retry    *api.RetryPolicy
}

// NewFetcher creates a fetcher. A nil retry policy selects the default
// (3 attempts, 1s base, 8s cap).
func NewFetcher(provider MarketData, filter *Filter, retry *api.RetryPolicy) *Fetcher {
	if retry == nil {
		retry = api.DefaultRetryPolicy()
	}
	return &Fetcher{provider: provider, filter: filter, retry: retry}
}

// Fetch builds the ScreenedStock for symbol. It returns (nil, nil) when the
// filter rejects the stock, and a non-nil error only after retries are
// exhausted.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*ScreenedStock, error) {
	var stock *ScreenedStock
	err := f.retry.Retry(ctx, func() error {
		s, ferr := f.fetchOnce(ctx, symbol)
		if ferr != nil {
			return ferr
		}
		stock = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if f.filter.Debug {
		f.filter.Explain(ctx, stock)
	}
	if !f.filter.Passes(stock) {
		return nil, nil
	}
	return stock, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, symbol string) (*ScreenedStock, error) {
	info, err := f.provider.Info(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &Info{}
	}

	// The balance sheet is fetched at most once per symbol, and only when a
	// derivation actually needs it.
	sheet := &sheetLoader{provider: f.provider, symbol: symbol}

	currentRatio, err := deriveCurrentRatio(ctx, info, sheet)
	if err != nil {
		return nil, err
	}
	debtToAssets, err := deriveDebtToAssets(ctx, info, sheet)
	if err != nil {
		return nil, err
	}

	return &ScreenedStock{
		Ticker:       symbol,
		Name:         firstString(info.ShortName, info.LongName),
		Sector:       info.Sector,
		Price:        priceFromInfo(info),
		TrailingPE:   nonZero(info.TrailingPE),
		PriceToBook:  nonZero(info.PriceToBook),
		CurrentRatio: currentRatio,
		DebtToAssets: debtToAssets,
		MarketCap:    info.MarketCap,
		Beta:         info.Beta,
	}, nil
}

// priceFromInfo picks the first usable price: current, regular-market, then
// previous close. Zero values count as missing.
func priceFromInfo(info *Info) *float64 {
	for _, candidate := range []*float64{info.CurrentPrice, info.RegularMarketPrice, info.PreviousClose} {
		if v := nonZero(candidate); v != nil {
			return v
		}
	}
	return nil
}

// deriveCurrentRatio uses the directly-supplied ratio when present, otherwise
// current assets over current liabilities from the latest balance-sheet
// column. Absent when either line item is missing or liabilities are zero.
func deriveCurrentRatio(ctx context.Context, info *Info, loader *sheetLoader) (*float64, error) {
	if v := nonZero(info.CurrentRatio); v != nil {
		return v, nil
	}

	sheet, err := loader.get(ctx)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, nil
	}

	assets, okA := sheet.Value(LineTotalCurrentAssets)
	liabilities, okL := sheet.Value(LineTotalCurrentLiabilities)
	if !okA || !okL || assets == 0 || liabilities == 0 {
		return nil, nil
	}
	ratio := assets / liabilities
	return &ratio, nil
}

// deriveDebtToAssets computes total debt over total assets, with either
// operand falling back to the latest balance-sheet line item. Absent when
// debt is unavailable or assets resolve to zero.
func deriveDebtToAssets(ctx context.Context, info *Info, loader *sheetLoader) (*float64, error) {
	debt := nonZero(info.TotalDebt)
	assets := nonZero(info.TotalAssets)

	if assets == nil {
		sheet, err := loader.get(ctx)
		if err != nil {
			return nil, err
		}
		if sheet != nil {
			if v, ok := sheet.Value(LineTotalAssets); ok {
				assets = &v
			}
		}
	}
	if debt == nil {
		sheet, err := loader.get(ctx)
		if err != nil {
			return nil, err
		}
		if sheet != nil {
			if v, ok := sheet.Value(LineTotalDebt); ok {
				debt = &v
			}
		}
	}

	if debt == nil || assets == nil || *assets == 0 {
		return nil, nil
	}
	ratio := *debt / *assets
	return &ratio, nil
}

// sheetLoader memoizes the balance-sheet fetch for one symbol within a single
// fetch attempt.
type sheetLoader struct {
	provider MarketData
	symbol   string
	loaded   bool
	sheet    BalanceSheet
	err      error
}

func (l *sheetLoader) get(ctx context.Context) (BalanceSheet, error) {
	if !l.loaded {
		l.sheet, l.err = l.provider.BalanceSheet(ctx, l.symbol)
		l.loaded = true
	}
	return l.sheet, l.err
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}
