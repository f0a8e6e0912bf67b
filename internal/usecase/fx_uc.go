package usecase

import (
	"fmt"

	"ledger-service/internal/domain"

	"github.com/shopspring/decimal"
)

// FXConverter converts amounts between supported currencies against a frozen
// rate table. Stateless; safe for concurrent use.
type FXConverter struct{}

func NewFXConverter() *FXConverter {
	return &FXConverter{}
}

// Convert converts amount from one currency to another using the table's
// quotes, pivoting through USD when no direct quote exists. No intermediate
// rounding; the final result is rounded half-to-even to the target
// currency's minor units. A missing rate is a hard error, never 1:1.
func (c *FXConverter) Convert(amount decimal.Decimal, from, to string, table *domain.RateTable) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	if rate, ok := table.Rate(from, to); ok {
		return amount.Mul(rate).RoundBank(domain.CurrencyDecimals(to)), nil
	}

	usd, err := c.toPivot(amount, from, table)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := c.fromPivot(usd, to, table)
	if err != nil {
		return decimal.Zero, err
	}
	return out.RoundBank(domain.CurrencyDecimals(to)), nil
}

func (c *FXConverter) toPivot(amount decimal.Decimal, from string, table *domain.RateTable) (decimal.Decimal, error) {
	if from == domain.PivotCurrency {
		return amount, nil
	}
	// Quotes are stored as USD→X legs; the inbound leg divides by that quote.
	if rate, ok := table.Rate(domain.PivotCurrency, from); ok {
		if rate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: zero rate for %s/%s", domain.ErrRateUnavailable, domain.PivotCurrency, from)
		}
		return amount.Div(rate), nil
	}
	if rate, ok := table.Rate(from, domain.PivotCurrency); ok {
		return amount.Mul(rate), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s as of %s", domain.ErrRateUnavailable, from, domain.PivotCurrency, table.AsOf.Format("2006-01-02"))
}

func (c *FXConverter) fromPivot(amount decimal.Decimal, to string, table *domain.RateTable) (decimal.Decimal, error) {
	if to == domain.PivotCurrency {
		return amount, nil
	}
	if rate, ok := table.Rate(domain.PivotCurrency, to); ok {
		return amount.Mul(rate), nil
	}
	if rate, ok := table.Rate(to, domain.PivotCurrency); ok {
		if rate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: zero rate for %s/%s", domain.ErrRateUnavailable, to, domain.PivotCurrency)
		}
		return amount.Div(rate), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s as of %s", domain.ErrRateUnavailable, domain.PivotCurrency, to, table.AsOf.Format("2006-01-02"))
}

// Convertible reports whether a conversion path exists between the two
// currencies in the table.
func (c *FXConverter) Convertible(from, to string, table *domain.RateTable) bool {
	if from == to {
		return true
	}
	_, err := c.Convert(decimal.New(1, 0), from, to, table)
	return err == nil
}
