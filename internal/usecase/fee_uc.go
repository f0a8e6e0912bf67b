package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	motifRuleCacheTTL = 5 * time.Minute
	motifRuleCacheKey = "ledger:motif_rule:"
)

// FeeCalculator computes fee, profit and the settlement-currency leg for a
// candidate transaction. All figures are derived from a single rate table
// resolved at the transaction's occurred-at time, so the same request always
// yields the same breakdown.
type FeeCalculator struct {
	rules     repository.MotifRuleRepository
	rates     repository.RateRepository
	converter *FXConverter
	rdb       *redis.Client // optional; nil disables rule caching
}

func NewFeeCalculator(rules repository.MotifRuleRepository, rates repository.RateRepository, converter *FXConverter, rdb *redis.Client) *FeeCalculator {
	return &FeeCalculator{rules: rules, rates: rates, converter: converter, rdb: rdb}
}

// Compute resolves the rate table as of asOf and derives the breakdown.
// Validation failures come back as *domain.ValidationError; anything else
// is operational.
func (fc *FeeCalculator) Compute(ctx context.Context, amount decimal.Decimal, currency, motif string, asOf time.Time) (*domain.FeeBreakdown, error) {
	table, err := fc.rates.RatesAsOf(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rate table: %w", err)
	}
	return fc.ComputeWithTable(ctx, amount, currency, motif, table)
}

// ComputeWithTable derives the breakdown against an already-resolved rate
// table, so a commit and its validation see the exact same rates.
func (fc *FeeCalculator) ComputeWithTable(ctx context.Context, amount decimal.Decimal, currency, motif string, table *domain.RateTable) (*domain.FeeBreakdown, error) {
	if !amount.IsPositive() {
		return nil, domain.NewInvalidAmount(amount)
	}

	rule, err := fc.ruleFor(ctx, domain.NormalizeMotif(motif))
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.NewUnknownMotif(motif)
	}

	snapshot, ok := table.Snapshot()
	if !ok {
		return nil, fmt.Errorf("%w: incomplete rate table as of %s", domain.ErrRateUnavailable, table.AsOf.Format(time.RFC3339))
	}

	fee := fc.feeFor(rule, amount, currency)
	cost := amount.Mul(decimal.New(rule.CostBps, -4)).RoundBank(domain.CurrencyDecimals(currency))
	profit := fee.Sub(cost)

	converted, err := fc.converter.Convert(amount, currency, domain.SettlementCurrency, table)
	if err != nil {
		return nil, err
	}

	return &domain.FeeBreakdown{
		Fee:             fee,
		Profit:          profit,
		ConvertedAmount: converted,
		Snapshot:        *snapshot,
		Rule:            rule,
	}, nil
}

// feeFor applies the rule to the amount. Percent fees are basis points of
// the amount, clamped to the rule's bounds; flat fees pass through.
func (fc *FeeCalculator) feeFor(rule *domain.MotifRule, amount decimal.Decimal, currency string) decimal.Decimal {
	var fee decimal.Decimal
	switch rule.FeeKind {
	case domain.FeeFlat:
		fee = rule.FeeValue
	default:
		fee = amount.Mul(decimal.New(rule.FeeBps, -4))
	}

	if rule.MinFee != nil && fee.LessThan(*rule.MinFee) {
		fee = *rule.MinFee
	}
	if rule.MaxFee != nil && fee.GreaterThan(*rule.MaxFee) {
		fee = *rule.MaxFee
	}
	return fee.RoundBank(domain.CurrencyDecimals(currency))
}

func (fc *FeeCalculator) ruleFor(ctx context.Context, motif string) (*domain.MotifRule, error) {
	if fc.rdb != nil {
		cached, err := fc.rdb.Get(ctx, motifRuleCacheKey+motif).Result()
		if err == nil {
			var rule domain.MotifRule
			if err := json.Unmarshal([]byte(cached), &rule); err == nil {
				return &rule, nil
			}
		} else if err != redis.Nil {
			log.WithError(err).Warn("motif rule cache read failed")
		}
	}

	rule, err := fc.rules.RuleFor(ctx, motif)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve motif rule: %w", err)
	}
	if rule == nil {
		return nil, nil
	}

	if fc.rdb != nil {
		if payload, err := json.Marshal(rule); err == nil {
			if err := fc.rdb.Set(ctx, motifRuleCacheKey+motif, payload, motifRuleCacheTTL).Err(); err != nil {
				log.WithError(err).Warn("motif rule cache write failed")
			}
		}
	}
	return rule, nil
}

// InvalidateRule drops the cached rule for a motif after an upsert.
func (fc *FeeCalculator) InvalidateRule(ctx context.Context, motif string) {
	if fc.rdb == nil {
		return
	}
	if err := fc.rdb.Del(ctx, motifRuleCacheKey+domain.NormalizeMotif(motif)).Err(); err != nil {
		log.WithError(err).Warn("motif rule cache invalidation failed")
	}
}
