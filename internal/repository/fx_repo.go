package repository

import (
	"context"
	"fmt"
	"time"

	"ledger-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RateRepository resolves effective-dated FX quotes. RatesAsOf returns, for
// each configured pair, the latest quote whose as_of is not after the given
// timestamp — exactly one rate per pair, or none.
type RateRepository interface {
	RatesAsOf(ctx context.Context, asOf time.Time) (*domain.RateTable, error)
	UpsertRates(ctx context.Context, rates []*domain.FXRate) error
	ListHistory(ctx context.Context, base, quote string, limit int) ([]*domain.FXRate, error)
}

type rateRepo struct {
	db *pgxpool.Pool
}

func NewRateRepo(db *pgxpool.Pool) RateRepository {
	return &rateRepo{db: db}
}

func (r *rateRepo) RatesAsOf(ctx context.Context, asOf time.Time) (*domain.RateTable, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (base_currency, quote_currency)
			id, base_currency, quote_currency, rate, as_of, created_at
		FROM fx_rates
		WHERE as_of <= $1
		ORDER BY base_currency, quote_currency, as_of DESC
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rates: %w", err)
	}
	defer rows.Close()

	var quotes []*domain.FXRate
	for rows.Next() {
		fx, err := scanFXRate(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, fx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NewRateTable(asOf, quotes), nil
}

func (r *rateRepo) UpsertRates(ctx context.Context, rates []*domain.FXRate) error {
	now := time.Now()
	for _, fx := range rates {
		_, err := r.db.Exec(ctx, `
			INSERT INTO fx_rates (base_currency, quote_currency, rate, as_of, created_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (base_currency, quote_currency, as_of) DO UPDATE
			SET rate = EXCLUDED.rate,
			    created_at = EXCLUDED.created_at
		`, fx.BaseCurrency, fx.QuoteCurrency, fx.Rate.String(), fx.AsOf, now)
		if err != nil {
			return fmt.Errorf("failed to upsert rate %s/%s: %w", fx.BaseCurrency, fx.QuoteCurrency, err)
		}
	}
	return nil
}

func (r *rateRepo) ListHistory(ctx context.Context, base, quote string, limit int) ([]*domain.FXRate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, base_currency, quote_currency, rate, as_of, created_at
		FROM fx_rates
		WHERE base_currency = $1 AND quote_currency = $2
		ORDER BY as_of DESC
		LIMIT $3
	`, base, quote, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate history: %w", err)
	}
	defer rows.Close()

	var history []*domain.FXRate
	for rows.Next() {
		fx, err := scanFXRate(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, fx)
	}
	return history, rows.Err()
}

func scanFXRate(row pgx.Row) (*domain.FXRate, error) {
	var fx domain.FXRate
	var rate string
	if err := row.Scan(&fx.ID, &fx.BaseCurrency, &fx.QuoteCurrency, &rate, &fx.AsOf, &fx.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	fx.Rate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid stored rate %q: %w", rate, err)
	}
	return &fx, nil
}
