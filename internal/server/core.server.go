package server

import (
	"context"

	"ledger-service/internal/config"
	hrest "ledger-service/internal/handler/rest"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/service"
	"ledger-service/internal/usecase"
	"ledger-service/pkg/utils"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func NewLedgerRestServer(cfg config.AppConfig) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Kafka publisher ---
	publisher := pub.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)

	// --- Repositories ---
	accountRepo := repository.NewAccountRepo(dbpool)
	movementRepo := repository.NewMovementRepo(dbpool)
	rateRepo := repository.NewRateRepo(dbpool)
	ruleRepo := repository.NewMotifRuleRepo(dbpool)

	// --- Usecases ---
	converter := usecase.NewFXConverter()
	feeUC := usecase.NewFeeCalculator(ruleRepo, rateRepo, converter, rdb)
	balanceUC := usecase.NewBalanceReconstructor(movementRepo)
	analyticsUC := usecase.NewAnalyticsUsecase(movementRepo, balanceUC)
	gate := usecase.NewValidationGate(converter)
	refs := utils.NewReferenceCodeGenerator("TXN-")
	txUC := usecase.NewTransactionUsecase(
		accountRepo,
		movementRepo,
		rateRepo,
		feeUC,
		balanceUC,
		gate,
		converter,
		refs,
		publisher,
	)

	// --- Seed system in a goroutine (non-blocking) ---
	systemSeeder := service.NewSystemSeeder(rateRepo, ruleRepo)
	go func() {
		if err := systemSeeder.SeedSystem(context.Background()); err != nil {
			log.Warnf("system seeding failed: %v", err)
		}
	}()

	// --- REST handler ---
	ledgerHandler := hrest.NewLedgerRestHandler(
		txUC,
		feeUC,
		balanceUC,
		analyticsUC,
		accountRepo,
		movementRepo,
		rateRepo,
		ruleRepo,
	)

	ledgerHandler.Start(cfg.HTTPAddr)
}
