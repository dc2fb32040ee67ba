// Package ledger assembles the wallet, transaction and reconciliation
// services over one database and one redis client.
package ledger

import (
	"clubledger/internal/config"
	"clubledger/internal/metrics"
	"clubledger/internal/repositories"
	"clubledger/internal/repositories/cache"
	"clubledger/internal/services/reconciliation"
	"clubledger/internal/services/transaction"
	"clubledger/internal/services/wallet"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Ledger struct {
	Cache        *cache.CacheService
	Wallets      wallet.Service
	Transactions transaction.Service
	Job          *reconciliation.Job
	Scheduler    *reconciliation.Scheduler
}

// New wires the services. A nil redis client disables the wallet cache and
// the cross-process reconciliation lock; a nil collector disables metrics.
func New(db *gorm.DB, rdb *redis.Client, cfg config.LedgerConfig, collector *metrics.Collector, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}

	store := repositories.NewStore(db)
	clubs := repositories.NewClubRepository(db, cfg.OfficerRoles)

	l := &Ledger{}
	var (
		walletCache wallet.CacheOperator
		locker      reconciliation.Locker
	)
	if rdb != nil {
		l.Cache = cache.NewCacheService(rdb, cfg.WalletCacheTTL)
		walletCache = l.Cache
		locker = cache.NewLockManager(rdb)
	}

	var (
		txMetrics  transaction.MetricsCollector
		jobMetrics reconciliation.MetricsCollector
	)
	if collector != nil {
		txMetrics = collector
		jobMetrics = collector
	}

	l.Wallets = wallet.NewService(store, clubs, walletCache, log)
	l.Transactions = transaction.NewService(transaction.ServiceConfig{
		Store:    store,
		Clubs:    clubs,
		Officers: clubs,
		Wallets:  l.Wallets,
		Logger:   log,
		Metrics:  txMetrics,
	})
	l.Job = reconciliation.NewJob(reconciliation.JobConfig{
		Store:     store,
		Wallets:   l.Wallets,
		Cache:     l.Wallets,
		Tolerance: cfg.Reconciliation.Tolerance,
		Logger:    log,
		Metrics:   jobMetrics,
	})
	l.Scheduler = reconciliation.NewScheduler(l.Job, locker, cfg.Reconciliation, log)
	return l
}
