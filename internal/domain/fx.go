package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supported currency codes. USD is the pivot currency for conversions,
// CNY is the settlement currency for cross-border legs.
const (
	CurrencyUSD = "USD"
	CurrencyCDF = "CDF"
	CurrencyCNY = "CNY"

	PivotCurrency      = CurrencyUSD
	SettlementCurrency = CurrencyCNY
)

type Currency struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Decimals  int32     `json:"decimals"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultCurrencies returns the static list of supported currencies
func DefaultCurrencies() []*Currency {
	now := time.Now()
	return []*Currency{
		{Code: CurrencyUSD, Name: "US Dollar", Decimals: 2, CreatedAt: now, UpdatedAt: now},
		{Code: CurrencyCDF, Name: "Congolese Franc", Decimals: 2, CreatedAt: now, UpdatedAt: now},
		{Code: CurrencyCNY, Name: "Chinese Yuan", Decimals: 2, CreatedAt: now, UpdatedAt: now},
	}
}

// CurrencyDecimals returns the minor-unit precision for a currency code.
func CurrencyDecimals(code string) int32 {
	for _, c := range DefaultCurrencies() {
		if c.Code == code {
			return c.Decimals
		}
	}
	return 2
}

// IsSupportedCurrency reports whether code is one of the supported currencies.
func IsSupportedCurrency(code string) bool {
	return code == CurrencyUSD || code == CurrencyCDF || code == CurrencyCNY
}

// FXRate is a single currency-pair quote effective from AsOf.
type FXRate struct {
	ID            int64           `json:"id"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"`
	AsOf          time.Time       `json:"as_of"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DefaultFXRates returns the seed quotes (USD→CNY and USD→CDF legs).
func DefaultFXRates(asOf time.Time) []*FXRate {
	return []*FXRate{
		{BaseCurrency: CurrencyUSD, QuoteCurrency: CurrencyCNY, Rate: decimal.RequireFromString("7.25"), AsOf: asOf},
		{BaseCurrency: CurrencyUSD, QuoteCurrency: CurrencyCDF, Rate: decimal.RequireFromString("2850"), AsOf: asOf},
	}
}

// RateTable is the set of rates resolved for a single point in time.
// It is immutable once built; engine calls take a table, never a live feed.
type RateTable struct {
	AsOf  time.Time
	rates map[string]decimal.Decimal
}

func rateKey(base, quote string) string {
	return base + "/" + quote
}

// NewRateTable builds a table from resolved quotes. For each pair only the
// quote passed in is kept; resolution of "latest as of t" happens upstream.
func NewRateTable(asOf time.Time, quotes []*FXRate) *RateTable {
	t := &RateTable{
		AsOf:  asOf,
		rates: make(map[string]decimal.Decimal, len(quotes)),
	}
	for _, q := range quotes {
		t.rates[rateKey(q.BaseCurrency, q.QuoteCurrency)] = q.Rate
	}
	return t
}

// Rate returns the direct quote for base→quote, if present.
func (t *RateTable) Rate(base, quote string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	r, ok := t.rates[rateKey(base, quote)]
	return r, ok
}

// RateSnapshot is the frozen view of the rates used to compute a transaction.
// It is persisted verbatim on the transaction so historical amounts never
// need recomputation against a live rate table.
type RateSnapshot struct {
	UsdToCny decimal.Decimal `json:"rate_usd_cny"`
	UsdToCdf decimal.Decimal `json:"rate_usd_cdf"`
	AsOf     time.Time       `json:"rates_as_of"`
}

// Snapshot captures the USD legs of the table. Both legs must resolve.
func (t *RateTable) Snapshot() (*RateSnapshot, bool) {
	usdCny, ok1 := t.Rate(CurrencyUSD, CurrencyCNY)
	usdCdf, ok2 := t.Rate(CurrencyUSD, CurrencyCDF)
	if !ok1 || !ok2 {
		return nil, false
	}
	return &RateSnapshot{UsdToCny: usdCny, UsdToCdf: usdCdf, AsOf: t.AsOf}, true
}
