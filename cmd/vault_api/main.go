package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/data/mongo"
	"github.com/microcredit-pool-ledger/internal/data/postgres"
	redisstore "github.com/microcredit-pool-ledger/internal/data/redis"
	"github.com/microcredit-pool-ledger/internal/lending"
	"github.com/microcredit-pool-ledger/internal/logger"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
	"github.com/microcredit-pool-ledger/internal/platform/persistence"
	"github.com/microcredit-pool-ledger/internal/vault_api"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("vault_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Vault API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	if err := persistence.RunMigrations(log, cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Idempotency is optional; the interface stays nil without Redis.
	var idempotency middleware.IdempotencyStore
	var redisDB *persistence.RedisDB
	if cfg.Redis.Addr != "" {
		redisDB, err = persistence.NewRedisDB(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		idempotency = redisstore.NewIdempotencyStore(log, redisDB.Client(), cfg.Redis.IdempotencyTTL, cfg.Redis.LockTTL)
	}

	// Rebuild the ledger from the durable state
	stateStore := postgres.NewStateStore(log, postgresDB)
	snapshot, err := stateStore.Load(appCtx)
	if err != nil {
		log.Error("Failed to load ledger state", "error", err)
		os.Exit(1)
	}

	lendingCfg, err := lending.ConfigFromSettings(cfg.Lending)
	if err != nil {
		log.Error("Invalid lending configuration", "error", err)
		os.Exit(1)
	}

	ledger := lending.NewLedger(lendingCfg, log.With("component", "ledger"), lending.WithJournal(stateStore))
	if err := ledger.Restore(snapshot); err != nil {
		log.Error("Failed to restore ledger state", "error", err)
		os.Exit(1)
	}
	gate := lending.NewGate(ledger, cfg.Lending.OwnerID)

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit indexes", "error", err)
		os.Exit(1)
	}

	m := metrics.New(nil)
	vault := service.NewVaultService(log, ledger, gate, m)
	audit := service.NewAuditService(log, auditRepo)

	server := vault_api.NewServer(log, cfg, vault_api.Dependencies{
		Vault:       vault,
		Audit:       audit,
		Metrics:     m,
		Idempotency: idempotency,
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests before the journal's pool goes away
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if redisDB != nil {
		if err := redisDB.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
			shutdownErr = err
		}
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
