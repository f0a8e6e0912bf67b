package repository

import (
	"context"
	"fmt"
	"time"

	"ledger-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MovementRepository is the append-only ledger store. Append is atomic and
// durable before returning; a successful append is irrevocable. Listings are
// ordered by occurred_at ascending with the assigned id as tie-break.
type MovementRepository interface {
	Append(ctx context.Context, m *domain.Movement) (*domain.Movement, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, from, to *time.Time) ([]*domain.Movement, error)
	List(ctx context.Context, filter domain.MovementFilter) ([]*domain.Movement, int64, error)
	Stats(ctx context.Context, filter domain.MovementFilter) (*domain.MovementStats, error)
}

type movementRepo struct {
	db *pgxpool.Pool
}

func NewMovementRepo(db *pgxpool.Pool) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) Append(ctx context.Context, m *domain.Movement) (*domain.Movement, error) {
	committed := *m
	err := r.db.QueryRow(ctx, `
		INSERT INTO movements (account_id, type, amount, currency, occurred_at, cause_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, m.AccountID, m.Type, m.Amount.String(), m.Currency, m.OccurredAt, m.CauseRef, time.Now()).
		Scan(&committed.ID, &committed.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append movement: %w", err)
	}
	return &committed, nil
}

func (r *movementRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, from, to *time.Time) ([]*domain.Movement, error) {
	query := `
		SELECT id, account_id, type, amount, currency, occurred_at, cause_ref, created_at
		FROM movements
		WHERE account_id = $1
	`
	args := []interface{}{accountID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	query += " ORDER BY occurred_at ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		var m domain.Movement
		var amount string
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Type, &amount, &m.Currency, &m.OccurredAt, &m.CauseRef, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

func movementWhere(filter domain.MovementFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		where += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	return where, args
}

func (r *movementRepo) List(ctx context.Context, filter domain.MovementFilter) ([]*domain.Movement, int64, error) {
	where, args := movementWhere(filter)

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM movements"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	args = append(args, limit)
	query := fmt.Sprintf(
		"SELECT id, account_id, type, amount, currency, occurred_at, cause_ref, created_at FROM movements%s ORDER BY occurred_at ASC, id ASC LIMIT $%d",
		where, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		var m domain.Movement
		var amount string
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Type, &amount, &m.Currency, &m.OccurredAt, &m.CauseRef, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		m.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		movements = append(movements, &m)
	}
	return movements, total, rows.Err()
}

// Stats aggregates the matching movements in the database; the fold never
// leaves Postgres.
func (r *movementRepo) Stats(ctx context.Context, filter domain.MovementFilter) (*domain.MovementStats, error) {
	where, args := movementWhere(filter)
	row := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0),
			COUNT(*) FILTER (WHERE type = 'debit'),
			COUNT(*) FILTER (WHERE type = 'credit'),
			COUNT(*)
		FROM movements`+where, args...)

	var stats domain.MovementStats
	var debits, credits string
	if err := row.Scan(&debits, &credits, &stats.DebitCount, &stats.CreditCount, &stats.MovementCount); err != nil {
		return nil, fmt.Errorf("failed to aggregate movements: %w", err)
	}
	var err error
	if stats.TotalDebits, err = decimal.NewFromString(debits); err != nil {
		return nil, fmt.Errorf("invalid aggregated debits %q: %w", debits, err)
	}
	if stats.TotalCredits, err = decimal.NewFromString(credits); err != nil {
		return nil, fmt.Errorf("invalid aggregated credits %q: %w", credits, err)
	}
	stats.Net = stats.TotalCredits.Sub(stats.TotalDebits)
	return &stats, nil
}
