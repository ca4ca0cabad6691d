package fundamentals

import "context"

// Standardized balance-sheet line-item labels exposed by the market-data
// provider, most-recent reporting column first.
const (
	LineTotalCurrentAssets      = "Total Current Assets"
	LineTotalCurrentLiabilities = "Total Current Liabilities"
	LineTotalAssets             = "Total Assets"
	LineTotalDebt               = "Total Debt"
)

// Info is one provider snapshot for a symbol. Every field is optional: a key
// missing from the provider payload and a key present but empty both arrive
// here as nil.
type Info struct {
	ShortName          *string
	LongName           *string
	Sector             *string
	CurrentPrice       *float64
	RegularMarketPrice *float64
	PreviousClose      *float64
	TrailingPE         *float64
	PriceToBook        *float64
	CurrentRatio       *float64
	TotalDebt          *float64
	TotalAssets        *float64
	MarketCap          *float64
	Beta               *float64
}

// BalanceSheet holds the latest reporting column of the provider's
// balance-sheet time series, keyed by standardized line-item label.
type BalanceSheet map[string]float64

// Value looks up a line item. ok is false when the item is missing.
func (b BalanceSheet) Value(label string) (value float64, ok bool) {
	v, ok := b[label]
	return v, ok
}

// MarketData is the per-symbol market-data provider consumed by the Fetcher.
// BalanceSheet may return (nil, nil) when the provider has no statements for
// the symbol; transport failures are returned as errors and retried.
type MarketData interface {
	Info(ctx context.Context, symbol string) (*Info, error)
	BalanceSheet(ctx context.Context, symbol string) (BalanceSheet, error)
}
