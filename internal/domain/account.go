package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind mirrors the operational account types of the console.
type AccountKind string

const (
	AccountKindCash        AccountKind = "cash"
	AccountKindBank        AccountKind = "bank"
	AccountKindMobileMoney AccountKind = "mobile_money"
)

// Account owns zero or more movements. It is never deleted while movements
// reference it; deactivation is a flag, not removal.
type Account struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Kind        AccountKind     `json:"kind"`
	Currency    string          `json:"currency"`
	CreditLimit decimal.Decimal `json:"credit_limit"` // may be negative to allow overdraft
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AccountState is the point-in-time view the validation gate decides against.
type AccountState struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	AsOf        time.Time       `json:"as_of"`
}

// AccountCreate carries caller input for a new account.
type AccountCreate struct {
	Name        string          `json:"name"`
	Kind        AccountKind     `json:"kind"`
	Currency    string          `json:"currency"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}
