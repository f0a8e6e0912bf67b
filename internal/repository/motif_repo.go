package repository

import (
	"context"
	"fmt"

	"ledger-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MotifRuleRepository stores motif-keyed fee rules. RuleFor returns
// (nil, nil) when no rule is configured; the caller decides how a missing
// rule is reported.
type MotifRuleRepository interface {
	RuleFor(ctx context.Context, motif string) (*domain.MotifRule, error)
	List(ctx context.Context) ([]*domain.MotifRule, error)
	Upsert(ctx context.Context, rule *domain.MotifRule) error
}

type motifRuleRepo struct {
	db *pgxpool.Pool
}

func NewMotifRuleRepo(db *pgxpool.Pool) MotifRuleRepository {
	return &motifRuleRepo{db: db}
}

func (r *motifRuleRepo) RuleFor(ctx context.Context, motif string) (*domain.MotifRule, error) {
	row := r.db.QueryRow(ctx, `
		SELECT motif, fee_kind, fee_bps, fee_value, min_fee, max_fee, cost_bps, updated_at
		FROM motif_rules
		WHERE motif = $1
	`, motif)

	rule, err := scanMotifRule(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get motif rule: %w", err)
	}
	return rule, nil
}

func (r *motifRuleRepo) List(ctx context.Context) ([]*domain.MotifRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT motif, fee_kind, fee_bps, fee_value, min_fee, max_fee, cost_bps, updated_at
		FROM motif_rules
		ORDER BY motif ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list motif rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.MotifRule
	for rows.Next() {
		rule, err := scanMotifRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *motifRuleRepo) Upsert(ctx context.Context, rule *domain.MotifRule) error {
	var minFee, maxFee *string
	if rule.MinFee != nil {
		s := rule.MinFee.String()
		minFee = &s
	}
	if rule.MaxFee != nil {
		s := rule.MaxFee.String()
		maxFee = &s
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO motif_rules (motif, fee_kind, fee_bps, fee_value, min_fee, max_fee, cost_bps, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (motif) DO UPDATE
		SET fee_kind = EXCLUDED.fee_kind,
		    fee_bps = EXCLUDED.fee_bps,
		    fee_value = EXCLUDED.fee_value,
		    min_fee = EXCLUDED.min_fee,
		    max_fee = EXCLUDED.max_fee,
		    cost_bps = EXCLUDED.cost_bps,
		    updated_at = EXCLUDED.updated_at
	`, rule.Motif, rule.FeeKind, rule.FeeBps, rule.FeeValue.String(), minFee, maxFee, rule.CostBps)
	if err != nil {
		return fmt.Errorf("failed to upsert motif rule %q: %w", rule.Motif, err)
	}
	return nil
}

func scanMotifRule(row pgx.Row) (*domain.MotifRule, error) {
	var rule domain.MotifRule
	var feeValue string
	var minFee, maxFee *string
	if err := row.Scan(&rule.Motif, &rule.FeeKind, &rule.FeeBps, &feeValue, &minFee, &maxFee, &rule.CostBps, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	rule.FeeValue, err = decimal.NewFromString(feeValue)
	if err != nil {
		return nil, fmt.Errorf("invalid stored fee value %q: %w", feeValue, err)
	}
	if minFee != nil {
		d, err := decimal.NewFromString(*minFee)
		if err != nil {
			return nil, fmt.Errorf("invalid stored min fee %q: %w", *minFee, err)
		}
		rule.MinFee = &d
	}
	if maxFee != nil {
		d, err := decimal.NewFromString(*maxFee)
		if err != nil {
			return nil, fmt.Errorf("invalid stored max fee %q: %w", *maxFee, err)
		}
		rule.MaxFee = &d
	}
	return &rule, nil
}
