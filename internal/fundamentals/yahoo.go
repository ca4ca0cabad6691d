package fundamentals

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"llm-stock-screener/internal/api"
)

const yahooBaseURL = "https://query2.finance.yahoo.com"

// YahooClient implements MarketData against the Yahoo Finance quoteSummary
// API. Info and BalanceSheet are independent requests so the balance sheet is
// only fetched when a derivation actually needs it.
type YahooClient struct {
	client  *api.Client
	baseURL string
}

// NewYahooClient creates a Yahoo Finance market-data client.
func NewYahooClient(timeout time.Duration) *YahooClient {
	return &YahooClient{
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		baseURL: yahooBaseURL,
	}
}

// rawValue is Yahoo's number wrapper: {"raw": 1.23, "fmt": "1.23"}.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) float() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	return v.Raw
}

type quoteSummaryEnvelope struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	Price *struct {
		ShortName          *string   `json:"shortName"`
		LongName           *string   `json:"longName"`
		RegularMarketPrice *rawValue `json:"regularMarketPrice"`
		MarketCap          *rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		TrailingPE    *rawValue `json:"trailingPE"`
		PreviousClose *rawValue `json:"previousClose"`
		Beta          *rawValue `json:"beta"`
	} `json:"summaryDetail"`
	FinancialData *struct {
		CurrentPrice *rawValue `json:"currentPrice"`
		CurrentRatio *rawValue `json:"currentRatio"`
		TotalDebt    *rawValue `json:"totalDebt"`
	} `json:"financialData"`
	DefaultKeyStatistics *struct {
		PriceToBook *rawValue `json:"priceToBook"`
	} `json:"defaultKeyStatistics"`
	AssetProfile *struct {
		Sector *string `json:"sector"`
	} `json:"assetProfile"`
	BalanceSheetHistory *struct {
		Statements []balanceSheetStatement `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`
}

type balanceSheetStatement struct {
	TotalAssets             *rawValue `json:"totalAssets"`
	TotalCurrentAssets      *rawValue `json:"totalCurrentAssets"`
	TotalCurrentLiabilities *rawValue `json:"totalCurrentLiabilities"`
	ShortLongTermDebt       *rawValue `json:"shortLongTermDebt"`
	LongTermDebt            *rawValue `json:"longTermDebt"`
}

func (y *YahooClient) fetch(ctx context.Context, symbol, modules string) (*quoteSummaryResult, error) {
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(symbol), modules)

	resp, err := y.client.GET(ctx, reqURL, api.YahooFinanceHeaders())
	if err != nil {
		return nil, err
	}

	var envelope quoteSummaryEnvelope
	if err := resp.ParseJSON(&envelope); err != nil {
		return nil, err
	}
	if envelope.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quoteSummary error for %s: %s", symbol, envelope.QuoteSummary.Error.Description)
	}
	if len(envelope.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quoteSummary returned no result for %s", symbol)
	}

	return &envelope.QuoteSummary.Result[0], nil
}

// Info retrieves the per-symbol info record.
func (y *YahooClient) Info(ctx context.Context, symbol string) (*Info, error) {
	result, err := y.fetch(ctx, symbol, "price,summaryDetail,financialData,defaultKeyStatistics,assetProfile")
	if err != nil {
		return nil, err
	}

	info := &Info{}
	if p := result.Price; p != nil {
		info.ShortName = p.ShortName
		info.LongName = p.LongName
		info.RegularMarketPrice = p.RegularMarketPrice.float()
		info.MarketCap = p.MarketCap.float()
	}
	if d := result.SummaryDetail; d != nil {
		info.TrailingPE = d.TrailingPE.float()
		info.PreviousClose = d.PreviousClose.float()
		info.Beta = d.Beta.float()
	}
	if f := result.FinancialData; f != nil {
		info.CurrentPrice = f.CurrentPrice.float()
		info.CurrentRatio = f.CurrentRatio.float()
		info.TotalDebt = f.TotalDebt.float()
	}
	if k := result.DefaultKeyStatistics; k != nil {
		info.PriceToBook = k.PriceToBook.float()
	}
	if a := result.AssetProfile; a != nil {
		info.Sector = a.Sector
	}
	return info, nil
}

// BalanceSheet retrieves the most recent balance-sheet statement mapped to
// the standardized line-item labels. Returns nil (no error) when the provider
// has no statements for the symbol.
func (y *YahooClient) BalanceSheet(ctx context.Context, symbol string) (BalanceSheet, error) {
	result, err := y.fetch(ctx, symbol, "balanceSheetHistory")
	if err != nil {
		return nil, err
	}

	history := result.BalanceSheetHistory
	if history == nil || len(history.Statements) == 0 {
		return nil, nil
	}

	// Statements arrive most-recent-first; only the latest column is used.
	latest := history.Statements[0]
	sheet := BalanceSheet{}
	if v := latest.TotalAssets.float(); v != nil {
		sheet[LineTotalAssets] = *v
	}
	if v := latest.TotalCurrentAssets.float(); v != nil {
		sheet[LineTotalCurrentAssets] = *v
	}
	if v := latest.TotalCurrentLiabilities.float(); v != nil {
		sheet[LineTotalCurrentLiabilities] = *v
	}
	if debt := totalDebt(latest); debt != nil {
		sheet[LineTotalDebt] = *debt
	}
	return sheet, nil
}

// totalDebt combines short/long term debt when either is reported.
func totalDebt(stmt balanceSheetStatement) *float64 {
	short := stmt.ShortLongTermDebt.float()
	long := stmt.LongTermDebt.float()
	if short == nil && long == nil {
		return nil
	}
	total := 0.0
	if short != nil {
		total += *short
	}
	if long != nil {
		total += *long
	}
	return &total
}
