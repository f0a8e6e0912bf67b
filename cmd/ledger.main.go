package main

import (
	"os"
	"os/signal"
	"syscall"

	"ledger-service/internal/config"
	"ledger-service/internal/server"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Info("Ledger: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Ledger REST server starting on %s", cfg.HTTPAddr)
		// This blocks until server exits
		server.NewLedgerRestServer(cfg)
		errCh <- nil
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Ledger service shutting down gracefully...")
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Ledger service failed: %v", err)
		}
	}
}
