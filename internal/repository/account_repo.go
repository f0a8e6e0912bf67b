package repository

import (
	"context"
	"fmt"
	"time"

	"ledger-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, in *domain.AccountCreate) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Account, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, in *domain.AccountCreate) (*domain.Account, error) {
	account := &domain.Account{
		ID:          uuid.New(),
		Name:        in.Name,
		Kind:        in.Kind,
		Currency:    in.Currency,
		CreditLimit: in.CreditLimit,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, name, kind, currency, credit_limit, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, account.ID, account.Name, account.Kind, account.Currency, account.CreditLimit.String(), account.IsActive, account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, kind, currency, credit_limit, is_active, created_at
		FROM accounts
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *accountRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Account, error) {
	query := `
		SELECT id, name, kind, currency, credit_limit, is_active, created_at
		FROM accounts
	`
	if activeOnly {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Deactivate flags the account inactive. Accounts are never deleted while
// movements reference them.
func (r *accountRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var creditLimit string
	if err := row.Scan(&a.ID, &a.Name, &a.Kind, &a.Currency, &creditLimit, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	a.CreditLimit, err = decimal.NewFromString(creditLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid stored credit limit %q: %w", creditLimit, err)
	}
	return &a, nil
}
