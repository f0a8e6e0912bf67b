package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType carries the sign of a movement's effect on the balance.
// Amounts are always positive; a negative amount is never stored.
type MovementType string

const (
	MovementCredit MovementType = "credit"
	MovementDebit  MovementType = "debit"
)

// Movement is a single immutable credit or debit fact against an account.
// Created once on transaction approval, never mutated or deleted —
// corrections are compensating movements. The store-assigned ID is the
// definitive insertion-order tie-break when OccurredAt collides.
type Movement struct {
	ID         int64           `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Type       MovementType    `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
	CauseRef   *uuid.UUID      `json:"cause_ref,omitempty"` // transaction that produced it
	CreatedAt  time.Time       `json:"created_at"`
}

// Signed returns the movement's effect on the balance: +amount for a
// credit, -amount for a debit.
func (m *Movement) Signed() decimal.Decimal {
	if m.Type == MovementDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// MovementFilter narrows movement queries for listing and stats.
type MovementFilter struct {
	AccountID *uuid.UUID
	Type      *MovementType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// MovementStats aggregates a filtered set of movements.
type MovementStats struct {
	TotalDebits   decimal.Decimal `json:"total_debits"`
	TotalCredits  decimal.Decimal `json:"total_credits"`
	DebitCount    int64           `json:"debit_count"`
	CreditCount   int64           `json:"credit_count"`
	MovementCount int64           `json:"movement_count"`
	Net           decimal.Decimal `json:"net"` // credits minus debits
}

// BalancePoint is one entry of a running-balance series.
type BalancePoint struct {
	At      time.Time       `json:"at"`
	Balance decimal.Decimal `json:"balance"`
}
