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

// BalanceReconstructor derives balances by folding the movement history.
// Balances are never stored; a movement appended with a past occurred-at
// date is reflected the next time the fold runs.
type BalanceReconstructor struct {
	movements repository.MovementRepository
}

func NewBalanceReconstructor(movements repository.MovementRepository) *BalanceReconstructor {
	return &BalanceReconstructor{movements: movements}
}

// BalanceAsOf folds every movement with occurred_at <= asOf. An account with
// no history has a zero balance.
func (b *BalanceReconstructor) BalanceAsOf(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	movements, err := b.movements.ListByAccount(ctx, accountID, nil, &asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load movements: %w", err)
	}

	balance := decimal.Zero
	for _, m := range movements {
		balance = balance.Add(m.Signed())
	}
	return balance, nil
}

// StateAsOf resolves the account's full point-in-time state.
func (b *BalanceReconstructor) StateAsOf(ctx context.Context, account *domain.Account, asOf time.Time) (*domain.AccountState, error) {
	balance, err := b.BalanceAsOf(ctx, account.ID, asOf)
	if err != nil {
		return nil, err
	}
	return &domain.AccountState{
		AccountID:   account.ID,
		Currency:    account.Currency,
		Balance:     balance,
		CreditLimit: account.CreditLimit,
		AsOf:        asOf,
	}, nil
}

// Series returns one balance point per movement inside [from, to], each the
// running balance after that movement. The fold starts from the beginning of
// history so the first point already carries everything before the window.
func (b *BalanceReconstructor) Series(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.BalancePoint, error) {
	movements, err := b.movements.ListByAccount(ctx, accountID, nil, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}

	balance := decimal.Zero
	points := make([]*domain.BalancePoint, 0, len(movements))
	for _, m := range movements {
		balance = balance.Add(m.Signed())
		if m.OccurredAt.Before(from) {
			continue
		}
		points = append(points, &domain.BalancePoint{At: m.OccurredAt, Balance: balance})
	}
	return points, nil
}
