package service

import (
	"context"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"

	log "github.com/sirupsen/logrus"
)

// SystemSeeder installs the baseline configuration a fresh deployment needs:
// the USD quote legs and the default motif fee rules. Seeding is idempotent;
// existing rules and quotes are left untouched.
type SystemSeeder struct {
	rates repository.RateRepository
	rules repository.MotifRuleRepository
}

func NewSystemSeeder(rates repository.RateRepository, rules repository.MotifRuleRepository) *SystemSeeder {
	return &SystemSeeder{rates: rates, rules: rules}
}

func (s *SystemSeeder) SeedSystem(ctx context.Context) error {
	if err := s.seedRates(ctx); err != nil {
		return err
	}
	return s.seedMotifRules(ctx)
}

func (s *SystemSeeder) seedRates(ctx context.Context) error {
	now := time.Now()
	table, err := s.rates.RatesAsOf(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to check existing rates: %w", err)
	}
	if _, ok := table.Snapshot(); ok {
		log.Debug("fx rates already seeded")
		return nil
	}

	seed := domain.DefaultFXRates(now)
	if err := s.rates.UpsertRates(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed fx rates: %w", err)
	}
	log.WithField("count", len(seed)).Info("seeded default fx rates")
	return nil
}

func (s *SystemSeeder) seedMotifRules(ctx context.Context) error {
	seeded := 0
	for _, rule := range domain.DefaultMotifRules() {
		existing, err := s.rules.RuleFor(ctx, rule.Motif)
		if err != nil {
			return fmt.Errorf("failed to check motif rule %q: %w", rule.Motif, err)
		}
		if existing != nil {
			continue
		}
		if err := s.rules.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("failed to seed motif rule %q: %w", rule.Motif, err)
		}
		seeded++
	}
	if seeded > 0 {
		log.WithField("count", seeded).Info("seeded default motif rules")
	}
	return nil
}
