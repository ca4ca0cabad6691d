// Package fundamentals implements the value-screening pipeline: per-symbol
// metric fetching, threshold filtering, and batched concurrent orchestration.
package fundamentals

// ScreenedStock is one fundamentals snapshot for a symbol. Nil fields are
// absent, never zero-defaulted; a stock survives screening only when every
// filter operand resolves and passes.
type ScreenedStock struct {
	Ticker       string
	Name         *string
	Sector       *string
	Price        *float64
	TrailingPE   *float64
	PriceToBook  *float64
	CurrentRatio *float64
	DebtToAssets *float64
	MarketCap    *float64
	Beta         *float64
}

// Record converts the stock to a plain key-value record for schema-agnostic
// downstream consumers (enrichment, report generation). Absent fields are nil.
func (s *ScreenedStock) Record() map[string]any {
	return map[string]any{
		"ticker":         s.Ticker,
		"name":           deref(s.Name),
		"sector":         deref(s.Sector),
		"price":          deref(s.Price),
		"trailing_pe":    deref(s.TrailingPE),
		"price_to_book":  deref(s.PriceToBook),
		"current_ratio":  deref(s.CurrentRatio),
		"debt_to_assets": deref(s.DebtToAssets),
		"market_cap":     deref(s.MarketCap),
		"beta":           deref(s.Beta),
	}
}

// PriceOrZero returns the price with absent treated as zero, the convention
// used for the final display ordering.
func (s *ScreenedStock) PriceOrZero() float64 {
	if s.Price == nil {
		return 0
	}
	return *s.Price
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
