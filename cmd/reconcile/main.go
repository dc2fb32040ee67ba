// Package main runs a single reconciliation sweep and exits. The exit code is
// 1 when any wallet could not be brought in line with its history.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"clubledger/internal/config"
	apperrors "clubledger/internal/errors"
	"clubledger/internal/ledger"
	"clubledger/internal/logger"
	"clubledger/internal/repositories"
	"clubledger/internal/repositories/cache"
	"clubledger/internal/services/reconciliation"

	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}

	code := run(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}

func run(cfg config.LedgerConfig, log *zap.Logger) int {
	db, err := repositories.InitDB(cfg.DB, log)
	if err != nil {
		log.Error("database unavailable", zap.Error(err))
		return 2
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	rdb := cache.NewRedisClient(cfg.Redis)
	defer func() { _ = rdb.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := ledger.New(db, rdb, cfg, nil, log)
	report, err := l.Scheduler.RunOnce(ctx)
	switch {
	case err == nil:
		log.Info("reconciliation complete",
			zap.Int("wallets_checked", report.WalletsChecked),
			zap.Int("drifted", len(report.Drifted)),
			zap.Int("repaired", report.Repaired),
		)
		return 0
	case errors.Is(err, apperrors.ErrConsistencyFailure):
		return 1
	case errors.Is(err, reconciliation.ErrRunInProgress):
		log.Info("another process is reconciling, nothing to do")
		return 0
	default:
		log.Error("reconciliation failed", zap.Error(err))
		return 2
	}
}
