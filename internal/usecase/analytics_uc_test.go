package usecase

import (
	"context"
	"testing"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyticsFixture(now time.Time) (*AnalyticsUsecase, repository.MovementRepository) {
	repo := repository.NewMemoryMovementRepo()
	a := NewAnalyticsUsecase(repo, NewBalanceReconstructor(repo))
	a.now = func() time.Time { return now }
	return a, repo
}

func TestTrendUp(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", now.AddDate(0, 0, -10))
	appendMovement(t, repo, accountID, domain.MovementCredit, "50", now.AddDate(0, 0, -2))

	trend, err := a.Trend(context.Background(), accountID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUp, trend.Direction)
	assert.Equal(t, "50", trend.Diff.String())
	assert.InDelta(t, 50.0, trend.Pct, 0.001)
}

func TestTrendDown(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "200", now.AddDate(0, 0, -10))
	appendMovement(t, repo, accountID, domain.MovementDebit, "80", now.AddDate(0, 0, -3))

	trend, err := a.Trend(context.Background(), accountID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendDown, trend.Direction)
	assert.Equal(t, "-80", trend.Diff.String())
	assert.InDelta(t, -40.0, trend.Pct, 0.001)
}

func TestTrendFlatOnTinyDelta(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", now.AddDate(0, 0, -10))
	appendMovement(t, repo, accountID, domain.MovementCredit, "0.005", now.AddDate(0, 0, -1))

	trend, err := a.Trend(context.Background(), accountID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendFlat, trend.Direction)
	assert.Zero(t, trend.Pct)
}

func TestTrendFlatGuardOnZeroBaseline(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	// Prior-period balance is 0; a percentage against it would be infinite.
	appendMovement(t, repo, accountID, domain.MovementCredit, "5", now.AddDate(0, 0, -2))

	trend, err := a.Trend(context.Background(), accountID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendFlat, trend.Direction)
	assert.Zero(t, trend.Pct)
	assert.Equal(t, "5", trend.Diff.String())
}

func TestTrendNegativeBaselineUsesAbsolute(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementDebit, "100", now.AddDate(0, 0, -10))
	appendMovement(t, repo, accountID, domain.MovementCredit, "50", now.AddDate(0, 0, -2))

	// -100 -> -50 is an improvement: direction up, +50%.
	trend, err := a.Trend(context.Background(), accountID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUp, trend.Direction)
	assert.InDelta(t, 50.0, trend.Pct, 0.001)
}

func TestSparklineExactWindowZeroFilled(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "10", now.Add(-time.Hour))
	appendMovement(t, repo, accountID, domain.MovementDebit, "4", now.AddDate(0, 0, -3))
	appendMovement(t, repo, accountID, domain.MovementCredit, "99", now.AddDate(0, 0, -40)) // outside window

	points, err := a.DailyNetFlow(context.Background(), accountID, 30)
	require.NoError(t, err)
	require.Len(t, points, 30)

	assert.Equal(t, "10", points[29].Net.String())
	assert.Equal(t, "-4", points[26].Net.String())

	zeroDays := 0
	for _, p := range points {
		if p.Net.IsZero() {
			zeroDays++
		}
	}
	assert.Equal(t, 28, zeroDays)

	// Days are consecutive, oldest first.
	for i := 1; i < len(points); i++ {
		assert.Equal(t, points[i-1].Date.AddDate(0, 0, 1), points[i].Date)
	}
}

func TestSparklineSameDayMovementsAggregate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "10", now.Add(-2*time.Hour))
	appendMovement(t, repo, accountID, domain.MovementDebit, "3", now.Add(-time.Hour))

	points, err := a.DailyNetFlow(context.Background(), accountID, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "7", points[6].Net.String())
}

func TestSparklineWindowClamped(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, _ := analyticsFixture(now)

	points, err := a.DailyNetFlow(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.Len(t, points, defaultWindowDays)

	points, err = a.DailyNetFlow(context.Background(), uuid.New(), 100000)
	require.NoError(t, err)
	assert.Len(t, points, maxWindowDays)
}

func TestMovementStats(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	a, repo := analyticsFixture(now)
	accountID := uuid.New()

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", now.AddDate(0, 0, -5))
	appendMovement(t, repo, accountID, domain.MovementCredit, "40", now.AddDate(0, 0, -4))
	appendMovement(t, repo, accountID, domain.MovementDebit, "25", now.AddDate(0, 0, -3))
	appendMovement(t, repo, uuid.New(), domain.MovementDebit, "999", now.AddDate(0, 0, -2))

	stats, err := a.Stats(context.Background(), domain.MovementFilter{AccountID: &accountID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.MovementCount)
	assert.Equal(t, int64(2), stats.CreditCount)
	assert.Equal(t, int64(1), stats.DebitCount)
	assert.Equal(t, "140", stats.TotalCredits.String())
	assert.Equal(t, "25", stats.TotalDebits.String())
	assert.Equal(t, "115", stats.Net.String())
}
