package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Operational failures. These reject the whole transaction and are surfaced
// for retry or escalation, never defaulted (a missing rate is not 1:1).
var (
	ErrRateUnavailable  = errors.New("no exchange rate available for currency pair")
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrAccountNotFound  = errors.New("account not found")
)

// Validation error codes. Validation failures are recoverable at the call
// site and carry enough structure to highlight the offending input field.
const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeUnknownMotif      = "UNKNOWN_MOTIF"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeCurrencyMismatch  = "CURRENCY_MISMATCH"
)

// ValidationError is a field-addressable rule violation.
type ValidationError struct {
	Field   string            `json:"field"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

func NewInvalidAmount(amount decimal.Decimal) *ValidationError {
	return &ValidationError{
		Field:   "amount",
		Code:    CodeInvalidAmount,
		Message: "amount must be positive",
		Context: map[string]string{"amount": amount.String()},
	}
}

func NewUnknownMotif(motif string) *ValidationError {
	return &ValidationError{
		Field:   "motif",
		Code:    CodeUnknownMotif,
		Message: fmt.Sprintf("no fee rule configured for motif %q", motif),
		Context: map[string]string{"motif": motif},
	}
}

func NewInsufficientFunds(available, required decimal.Decimal) *ValidationError {
	return &ValidationError{
		Field:   "amount",
		Code:    CodeInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds: available %s, required %s", available.String(), required.String()),
		Context: map[string]string{
			"available": available.String(),
			"required":  required.String(),
		},
	}
}

func NewCurrencyMismatch(txCurrency, accountCurrency string) *ValidationError {
	return &ValidationError{
		Field:   "currency",
		Code:    CodeCurrencyMismatch,
		Message: fmt.Sprintf("currency %s does not match account currency %s and is not convertible", txCurrency, accountCurrency),
		Context: map[string]string{
			"currency":         txCurrency,
			"account_currency": accountCurrency,
		},
	}
}
