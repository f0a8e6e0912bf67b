package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType maps a business event onto its ledger effect:
// revenue credits the account, expense debits it.
type TransactionType string

const (
	TransactionRevenue TransactionType = "revenue"
	TransactionExpense TransactionType = "expense"
)

// MovementType returns the ledger movement type this transaction emits.
func (t TransactionType) MovementType() MovementType {
	if t == TransactionExpense {
		return MovementDebit
	}
	return MovementCredit
}

// RequiresFunds reports whether the funds check applies (debit-type only).
func (t TransactionType) RequiresFunds() bool {
	return t == TransactionExpense
}

type TransactionStatus string

const (
	TransactionDraft     TransactionStatus = "draft"
	TransactionCommitted TransactionStatus = "committed"
	TransactionRejected  TransactionStatus = "rejected"
)

// TransactionRequest carries caller input for a candidate transaction.
type TransactionRequest struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Motif      string          `json:"motif"`
	OccurredAt time.Time       `json:"occurred_at"` // zero means now
}

// Transaction is a computed business event. Monetary effects and the rate
// snapshot are filled by the fee calculator; the snapshot is persisted
// verbatim so historical transactions stay reproducible as rates change.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	AccountID       uuid.UUID         `json:"account_id"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Motif           string            `json:"motif"`
	FeeAmount       decimal.Decimal   `json:"fee_amount"`
	ProfitAmount    decimal.Decimal   `json:"profit_amount"`
	ConvertedAmount decimal.Decimal   `json:"converted_amount"` // settlement-currency leg
	RateSnapshot    RateSnapshot      `json:"rate_snapshot"`
	ReferenceCode   string            `json:"reference_code,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
	CreatedAt       time.Time         `json:"created_at"`

	// Rejection carries the validation failure for rejected transactions.
	Rejection *ValidationError `json:"rejection,omitempty"`
}

// FeeBreakdown is the result of the fee computation, before any commit.
type FeeBreakdown struct {
	Fee             decimal.Decimal `json:"fee"`
	Profit          decimal.Decimal `json:"profit"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Snapshot        RateSnapshot    `json:"rate_snapshot"`
	Rule            *MotifRule      `json:"rule,omitempty"`
}
