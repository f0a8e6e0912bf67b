package usecase

import (
	"ledger-service/internal/domain"

	"github.com/shopspring/decimal"
)

// ValidationGate runs the pre-commit rules in a fixed order and stops at the
// first failure, so callers always see the most fundamental problem first:
// amount, then motif, then funds, then currency.
type ValidationGate struct {
	converter *FXConverter
}

func NewValidationGate(converter *FXConverter) *ValidationGate {
	return &ValidationGate{converter: converter}
}

// ValidationInput carries everything the gate needs, resolved by the caller.
// Rule is nil when no fee rule matched the motif; Table may be nil when rates
// could not be resolved (the currency rule then fails for non-matching pairs).
type ValidationInput struct {
	Request   domain.TransactionRequest
	Rule      *domain.MotifRule
	Account   *domain.Account
	Balance   decimal.Decimal // account balance as of the transaction time
	Table     *domain.RateTable
	FeeAmount decimal.Decimal
}

// Validate returns the first failing rule, or nil when the transaction may
// commit. The funds rule only applies to debit-type transactions; available
// funds extend past zero by the account's credit limit.
func (g *ValidationGate) Validate(in ValidationInput) *domain.ValidationError {
	if !in.Request.Amount.IsPositive() {
		return domain.NewInvalidAmount(in.Request.Amount)
	}

	if in.Rule == nil {
		return domain.NewUnknownMotif(in.Request.Motif)
	}

	if in.Request.Type.RequiresFunds() {
		required := in.Request.Amount
		if in.Request.Currency != in.Account.Currency {
			// The funds check runs in the account's currency. When no
			// conversion path exists the check cannot be evaluated, and
			// the currency rule is the real failure.
			converted, err := g.converter.Convert(in.Request.Amount, in.Request.Currency, in.Account.Currency, in.Table)
			if err != nil {
				return domain.NewCurrencyMismatch(in.Request.Currency, in.Account.Currency)
			}
			required = converted
		}
		available := in.Balance.Sub(in.Account.CreditLimit)
		if available.LessThan(required) {
			return domain.NewInsufficientFunds(available, required)
		}
	}

	if in.Request.Currency != in.Account.Currency {
		if !g.converter.Convertible(in.Request.Currency, in.Account.Currency, in.Table) {
			return domain.NewCurrencyMismatch(in.Request.Currency, in.Account.Currency)
		}
	}

	return nil
}
