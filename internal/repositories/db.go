// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"fmt"
	"time"

	"clubledger/internal/config"
	"clubledger/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// settledFeeIndex backs the duplicate-payment check at the storage level: a
// payer can hold at most one SUCCESS income per fee with no deletion marker.
// Index predicates cannot reference now(), so rows with a scheduled deletion
// are enforced only by HasSettledPayment, which runs under the wallet lock.
const settledFeeIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_income_fee_payer_settled
ON income_transactions (fee_id, payer_id)
WHERE status = 'SUCCESS' AND deleted_at IS NULL AND fee_id IS NOT NULL AND payer_id IS NOT NULL`

// InitDB opens the postgres connection, configures the pool and applies migrations.
func InitDB(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Configure GORM logger to ignore "record not found" errors
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn, // Only log warnings and errors
			IgnoreRecordNotFoundError: true,        // Ignore "record not found"
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("postgres connected and migrations applied",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
	)
	return db, nil
}

// Migrate creates the ledger tables. The clubs and club_members tables belong
// to the membership subsystem and are not migrated here.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Wallet{},
		&models.IncomeTransaction{},
		&models.OutcomeTransaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate ledger schema: %w", err)
	}

	if err := db.Exec(settledFeeIndex).Error; err != nil {
		return fmt.Errorf("failed to create settled fee index: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
