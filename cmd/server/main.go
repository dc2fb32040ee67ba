// Package main runs the ledger process: the daily reconciliation scheduler
// and the ops HTTP surface.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubledger/internal/config"
	"clubledger/internal/handlers"
	"clubledger/internal/ledger"
	"clubledger/internal/logger"
	"clubledger/internal/metrics"
	"clubledger/internal/middleware"
	"clubledger/internal/repositories"
	"clubledger/internal/repositories/cache"
	"clubledger/internal/routes"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("ledger stopped", zap.Error(err))
	}
}

func run(cfg config.LedgerConfig, log *zap.Logger) error {
	if cfg.OpsToken == "" {
		if cfg.IsProduction() {
			return errors.New("OPS_TOKEN must be set in production")
		}
		log.Warn("OPS_TOKEN not set, ops endpoints are unauthenticated")
	}

	// Initialize databases (PostgreSQL + Redis)
	db, err := repositories.InitDB(cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	rdb := cache.NewRedisClient(cfg.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis connection", zap.Error(err))
		}
	}()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	l := ledger.New(db, rdb, cfg, collector, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := l.Scheduler.Start(ctx); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	routes.SetupRoutes(app, routes.Handlers{
		Health: handlers.NewHealthHandler(version, map[string]handlers.Pinger{
			"database": handlers.PingFunc(sqlDB.PingContext),
			"redis":    handlers.PingFunc(l.Cache.HealthCheck),
		}).
			WithPoolStats("database", func() interface{} { return sqlDB.Stats() }).
			WithPoolStats("redis", func() interface{} { return l.Cache.GetStats() }),
		Wallet:         handlers.NewWalletHandler(l.Wallets),
		Reconciliation: handlers.NewReconciliationHandler(l.Scheduler, log),
		OpsAuth:        middleware.NewOpsAuth(cfg.OpsToken, log),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("ops server listening", zap.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if serr := app.ShutdownWithContext(shutdownCtx); serr != nil {
		log.Warn("http shutdown failed", zap.Error(serr))
	}
	if serr := l.Scheduler.Stop(shutdownCtx); serr != nil {
		log.Warn("scheduler did not stop in time", zap.Error(serr))
	}
	return err
}
