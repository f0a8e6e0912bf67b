package usecase

import (
	"context"
	"testing"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendMovement(t *testing.T, repo repository.MovementRepository, accountID uuid.UUID, mType domain.MovementType, amount string, occurredAt time.Time) {
	t.Helper()
	_, err := repo.Append(context.Background(), &domain.Movement{
		AccountID:  accountID,
		Type:       mType,
		Amount:     decimal.RequireFromString(amount),
		Currency:   domain.CurrencyUSD,
		OccurredAt: occurredAt,
	})
	require.NoError(t, err)
}

func TestBalanceEmptyAccountIsZero(t *testing.T) {
	b := NewBalanceReconstructor(repository.NewMemoryMovementRepo())

	balance, err := b.BalanceAsOf(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestBalanceFoldsHistory(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", base)
	appendMovement(t, repo, accountID, domain.MovementDebit, "30", base.Add(time.Hour))
	appendMovement(t, repo, accountID, domain.MovementCredit, "12.50", base.Add(2*time.Hour))

	balance, err := b.BalanceAsOf(context.Background(), accountID, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "82.5", balance.String())
}

func TestBalancePointInTime(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", base)
	appendMovement(t, repo, accountID, domain.MovementDebit, "30", base.Add(48*time.Hour))

	// As of a point between the two movements only the credit counts.
	balance, err := b.BalanceAsOf(context.Background(), accountID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "100", balance.String())
}

func TestBalanceHistoricalStaysStableAfterBackdatedAppend(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", base)

	before, err := b.BalanceAsOf(ctx, accountID, base.Add(-time.Hour))
	require.NoError(t, err)

	// Backdate a movement before the query point: the reconstruction must
	// pick it up, because balances are derived, not stored.
	appendMovement(t, repo, accountID, domain.MovementCredit, "40", base.Add(-2*time.Hour))

	after, err := b.BalanceAsOf(ctx, accountID, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, before.IsZero())
	assert.Equal(t, "40", after.String())
}

func TestBalanceReconstructionIsIdempotent(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	appendMovement(t, repo, accountID, domain.MovementCredit, "100", base)
	appendMovement(t, repo, accountID, domain.MovementDebit, "17.25", base.Add(time.Hour))

	first, err := b.BalanceAsOf(ctx, accountID, base.Add(2*time.Hour))
	require.NoError(t, err)
	second, err := b.BalanceAsOf(ctx, accountID, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestBalanceSeries(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// One movement before the window seeds the running balance.
	appendMovement(t, repo, accountID, domain.MovementCredit, "100", base.Add(-48*time.Hour))
	appendMovement(t, repo, accountID, domain.MovementDebit, "30", base)
	appendMovement(t, repo, accountID, domain.MovementCredit, "10", base.Add(time.Hour))

	points, err := b.Series(context.Background(), accountID, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "70", points[0].Balance.String())
	assert.Equal(t, "80", points[1].Balance.String())
}

func TestStateAsOf(t *testing.T) {
	repo := repository.NewMemoryMovementRepo()
	b := NewBalanceReconstructor(repo)
	account := gateAccount(domain.CurrencyUSD, "-500")
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	appendMovement(t, repo, account.ID, domain.MovementCredit, "250", base)

	state, err := b.StateAsOf(context.Background(), account, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, account.ID, state.AccountID)
	assert.Equal(t, "250", state.Balance.String())
	assert.Equal(t, "-500", state.CreditLimit.String())
	assert.Equal(t, domain.CurrencyUSD, state.Currency)
}
