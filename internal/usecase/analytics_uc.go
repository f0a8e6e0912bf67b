package usecase

import (
	"context"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
	defaultTrendDays  = 7
)

// trendEpsilon guards the flat classification: deltas and baselines below
// one cent are treated as zero so rounding dust never reads as movement.
var trendEpsilon = decimal.RequireFromString("0.01")

// AnalyticsUsecase derives trend and daily-flow views from movement history.
// The clock is injectable for deterministic windows in tests.
type AnalyticsUsecase struct {
	movements repository.MovementRepository
	balances  *BalanceReconstructor
	now       func() time.Time
}

func NewAnalyticsUsecase(movements repository.MovementRepository, balances *BalanceReconstructor) *AnalyticsUsecase {
	return &AnalyticsUsecase{
		movements: movements,
		balances:  balances,
		now:       time.Now,
	}
}

// Trend compares the balance now against the balance periodDays ago.
// Direction is flat when the delta is below epsilon, and also when the prior
// baseline is near zero: a percentage against nothing is meaningless, so the
// pct is forced to 0 rather than reported as infinite growth.
func (a *AnalyticsUsecase) Trend(ctx context.Context, accountID uuid.UUID, periodDays int) (*domain.TrendResult, error) {
	if periodDays <= 0 {
		periodDays = defaultTrendDays
	}
	now := a.now()
	priorAt := now.AddDate(0, 0, -periodDays)

	current, err := a.balances.BalanceAsOf(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	prior, err := a.balances.BalanceAsOf(ctx, accountID, priorAt)
	if err != nil {
		return nil, err
	}

	diff := current.Sub(prior)
	result := &domain.TrendResult{Direction: domain.TrendFlat, Diff: diff}

	if diff.Abs().LessThan(trendEpsilon) || prior.Abs().LessThan(trendEpsilon) {
		return result, nil
	}

	pct, _ := diff.Div(prior.Abs()).Mul(decimal.New(100, 0)).Float64()
	result.Pct = pct
	if diff.IsPositive() {
		result.Direction = domain.TrendUp
	} else {
		result.Direction = domain.TrendDown
	}
	return result, nil
}

// DailyNetFlow buckets movements of the trailing window into per-day net
// flow. The result always has exactly windowDays points, oldest first, with
// zero-filled days, so chart consumers never interpolate gaps.
func (a *AnalyticsUsecase) DailyNetFlow(ctx context.Context, accountID uuid.UUID, windowDays int) ([]*domain.SparklinePoint, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if windowDays > maxWindowDays {
		windowDays = maxWindowDays
	}

	now := a.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(windowDays - 1))
	end := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	movements, err := a.movements.ListByAccount(ctx, accountID, &start, &end)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}

	byDay := make(map[time.Time]decimal.Decimal, windowDays)
	for _, m := range movements {
		t := m.OccurredAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = byDay[day].Add(m.Signed())
	}

	points := make([]*domain.SparklinePoint, 0, windowDays)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		points = append(points, &domain.SparklinePoint{Date: day, Net: byDay[day]})
	}
	return points, nil
}

// Stats aggregates the movements matching the filter.
func (a *AnalyticsUsecase) Stats(ctx context.Context, filter domain.MovementFilter) (*domain.MovementStats, error) {
	stats, err := a.movements.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate movements: %w", err)
	}
	return stats, nil
}
