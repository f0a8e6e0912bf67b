package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledger-service/internal/domain"

	"github.com/google/uuid"
)

// In-memory adapters. Used by tests and as a standalone mode when no
// database is configured; semantics match the Postgres repositories,
// including the occurred_at + id ordering guarantee.

type memoryMovementRepo struct {
	mu        sync.RWMutex
	nextID    int64
	movements []*domain.Movement
}

func NewMemoryMovementRepo() MovementRepository {
	return &memoryMovementRepo{nextID: 1}
}

func (r *memoryMovementRepo) Append(ctx context.Context, m *domain.Movement) (*domain.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	committed := *m
	committed.ID = r.nextID
	committed.CreatedAt = time.Now()
	r.nextID++
	r.movements = append(r.movements, &committed)

	out := committed
	return &out, nil
}

func (r *memoryMovementRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, from, to *time.Time) ([]*domain.Movement, error) {
	filter := domain.MovementFilter{AccountID: &accountID, From: from, To: to}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filtered(filter), nil
}

func (r *memoryMovementRepo) List(ctx context.Context, filter domain.MovementFilter) ([]*domain.Movement, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filtered(filter)
	total := int64(len(matched))

	start := filter.Offset
	if start > len(matched) {
		return []*domain.Movement{}, total, nil
	}
	end := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if start+limit < end {
		end = start + limit
	}
	return matched[start:end], total, nil
}

func (r *memoryMovementRepo) filtered(filter domain.MovementFilter) []*domain.Movement {
	var out []*domain.Movement
	for _, m := range r.movements {
		if filter.AccountID != nil && m.AccountID != *filter.AccountID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.From != nil && m.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.OccurredAt.After(*filter.To) {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memoryMovementRepo) Stats(ctx context.Context, filter domain.MovementFilter) (*domain.MovementStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.MovementStats{}
	for _, m := range r.filtered(filter) {
		switch m.Type {
		case domain.MovementDebit:
			stats.TotalDebits = stats.TotalDebits.Add(m.Amount)
			stats.DebitCount++
		default:
			stats.TotalCredits = stats.TotalCredits.Add(m.Amount)
			stats.CreditCount++
		}
		stats.MovementCount++
	}
	stats.Net = stats.TotalCredits.Sub(stats.TotalDebits)
	return stats, nil
}

type memoryRateRepo struct {
	mu     sync.RWMutex
	nextID int64
	quotes []*domain.FXRate
}

func NewMemoryRateRepo() RateRepository {
	return &memoryRateRepo{nextID: 1}
}

func (r *memoryRateRepo) RatesAsOf(ctx context.Context, asOf time.Time) (*domain.RateTable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Latest quote per pair with as_of <= asOf.
	latest := make(map[string]*domain.FXRate)
	for _, q := range r.quotes {
		if q.AsOf.After(asOf) {
			continue
		}
		key := q.BaseCurrency + "/" + q.QuoteCurrency
		if cur, ok := latest[key]; !ok || q.AsOf.After(cur.AsOf) {
			latest[key] = q
		}
	}
	resolved := make([]*domain.FXRate, 0, len(latest))
	for _, q := range latest {
		resolved = append(resolved, q)
	}
	return domain.NewRateTable(asOf, resolved), nil
}

func (r *memoryRateRepo) UpsertRates(ctx context.Context, rates []*domain.FXRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fx := range rates {
		replaced := false
		for i, q := range r.quotes {
			if q.BaseCurrency == fx.BaseCurrency && q.QuoteCurrency == fx.QuoteCurrency && q.AsOf.Equal(fx.AsOf) {
				updated := *fx
				updated.ID = q.ID
				updated.CreatedAt = time.Now()
				r.quotes[i] = &updated
				replaced = true
				break
			}
		}
		if !replaced {
			stored := *fx
			stored.ID = r.nextID
			stored.CreatedAt = time.Now()
			r.nextID++
			r.quotes = append(r.quotes, &stored)
		}
	}
	return nil
}

func (r *memoryRateRepo) ListHistory(ctx context.Context, base, quote string, limit int) ([]*domain.FXRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*domain.FXRate
	for _, q := range r.quotes {
		if q.BaseCurrency == base && q.QuoteCurrency == quote {
			copied := *q
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AsOf.After(out[j].AsOf) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryMotifRuleRepo struct {
	mu    sync.RWMutex
	rules map[string]*domain.MotifRule
}

func NewMemoryMotifRuleRepo() MotifRuleRepository {
	return &memoryMotifRuleRepo{rules: make(map[string]*domain.MotifRule)}
}

func (r *memoryMotifRuleRepo) RuleFor(ctx context.Context, motif string) (*domain.MotifRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[motif]
	if !ok {
		return nil, nil
	}
	copied := *rule
	return &copied, nil
}

func (r *memoryMotifRuleRepo) List(ctx context.Context) ([]*domain.MotifRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.MotifRule, 0, len(r.rules))
	for _, rule := range r.rules {
		copied := *rule
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Motif < out[j].Motif })
	return out, nil
}

func (r *memoryMotifRuleRepo) Upsert(ctx context.Context, rule *domain.MotifRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rule
	copied.UpdatedAt = time.Now()
	r.rules[rule.Motif] = &copied
	return nil
}

type memoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func NewMemoryAccountRepo() AccountRepository {
	return &memoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *memoryAccountRepo) Create(ctx context.Context, in *domain.AccountCreate) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := &domain.Account{
		ID:          uuid.New(),
		Name:        in.Name,
		Kind:        in.Kind,
		Currency:    in.Currency,
		CreditLimit: in.CreditLimit,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	r.accounts[account.ID] = account
	copied := *account
	return &copied, nil
}

func (r *memoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *memoryAccountRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		if activeOnly && !account.IsActive {
			continue
		}
		copied := *account
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryAccountRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.IsActive = false
	return nil
}
