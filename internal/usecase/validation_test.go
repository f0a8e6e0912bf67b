package usecase

import (
	"testing"
	"time"

	"ledger-service/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateAccount(currency string, creditLimit string) *domain.Account {
	return &domain.Account{
		ID:          uuid.New(),
		Name:        "Caisse Principale",
		Kind:        domain.AccountKindCash,
		Currency:    currency,
		CreditLimit: decimal.RequireFromString(creditLimit),
		IsActive:    true,
	}
}

func gateInput(amount string, txType domain.TransactionType, balance string) ValidationInput {
	rules := domain.DefaultMotifRules()
	return ValidationInput{
		Request: domain.TransactionRequest{
			AccountID: uuid.New(),
			Type:      txType,
			Amount:    decimal.RequireFromString(amount),
			Currency:  domain.CurrencyUSD,
			Motif:     domain.MotifTransfert,
		},
		Rule:    rules[0],
		Account: gateAccount(domain.CurrencyUSD, "0"),
		Balance: decimal.RequireFromString(balance),
		Table:   domain.NewRateTable(time.Now(), domain.DefaultFXRates(time.Now())),
	}
}

func TestGatePasses(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())
	assert.Nil(t, gate.Validate(gateInput("80", domain.TransactionExpense, "100")))
}

func TestGateInvalidAmountWinsOverEverything(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	// Amount, motif and funds are all broken; the amount rule fires first.
	in := gateInput("-10", domain.TransactionExpense, "0")
	in.Rule = nil
	in.Request.Currency = domain.CurrencyCDF

	vErr := gate.Validate(in)
	require.NotNil(t, vErr)
	assert.Equal(t, domain.CodeInvalidAmount, vErr.Code)
}

func TestGateUnknownMotifBeforeFunds(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	in := gateInput("80", domain.TransactionExpense, "0")
	in.Rule = nil

	vErr := gate.Validate(in)
	require.NotNil(t, vErr)
	assert.Equal(t, domain.CodeUnknownMotif, vErr.Code)
}

func TestGateInsufficientFundsContext(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	vErr := gate.Validate(gateInput("80", domain.TransactionExpense, "50"))
	require.NotNil(t, vErr)
	assert.Equal(t, domain.CodeInsufficientFunds, vErr.Code)
	assert.Equal(t, "50", vErr.Context["available"])
	assert.Equal(t, "80", vErr.Context["required"])
}

func TestGateCreditLimitExtendsAvailableFunds(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	// A negative limit allows the balance to go that far below zero.
	in := gateInput("80", domain.TransactionExpense, "50")
	in.Account.CreditLimit = decimal.RequireFromString("-100")

	assert.Nil(t, gate.Validate(in))
}

func TestGateCreditsSkipFundsCheck(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())
	assert.Nil(t, gate.Validate(gateInput("80", domain.TransactionRevenue, "0")))
}

func TestGateCurrencyMismatch(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	in := gateInput("80", domain.TransactionRevenue, "1000")
	in.Request.Currency = domain.CurrencyCDF
	in.Table = domain.NewRateTable(time.Now(), nil) // no conversion path

	vErr := gate.Validate(in)
	require.NotNil(t, vErr)
	assert.Equal(t, domain.CodeCurrencyMismatch, vErr.Code)
	assert.Equal(t, domain.CurrencyCDF, vErr.Context["currency"])
	assert.Equal(t, domain.CurrencyUSD, vErr.Context["account_currency"])
}

func TestGateConvertibleCurrencyPasses(t *testing.T) {
	gate := NewValidationGate(NewFXConverter())

	// 2850 CDF is 1 USD; plenty of balance either way.
	in := gateInput("2850", domain.TransactionExpense, "1000")
	in.Request.Currency = domain.CurrencyCDF

	assert.Nil(t, gate.Validate(in))
}
