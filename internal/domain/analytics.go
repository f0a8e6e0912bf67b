package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// TrendResult classifies the balance delta of the current period against the
// equivalent prior period. Pct is relative to the prior period's absolute
// balance and forced to 0 (direction flat) when that baseline is near zero.
type TrendResult struct {
	Direction TrendDirection  `json:"direction"`
	Diff      decimal.Decimal `json:"diff"`
	Pct       float64         `json:"pct"`
}

// SparklinePoint is one day of net flow (credits minus debits).
type SparklinePoint struct {
	Date time.Time       `json:"date"`
	Net  decimal.Decimal `json:"net"`
}
