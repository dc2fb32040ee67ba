package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// notDeletedAt keeps rows whose soft-delete marker is absent or still in the future.
func notDeletedAt(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(deleted_at IS NULL OR deleted_at > ?)", now)
	}
}

func (r *transactionRepository) table(ctx context.Context, kind models.TransactionKind) *gorm.DB {
	return r.db.WithContext(ctx).Table(kind.Table())
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.table(ctx, tx.Kind).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to create %s transaction: %w", tx.Kind, err)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error) {
	return r.first(r.table(ctx, ref.Kind), ref)
}

func (r *transactionRepository) Lock(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error) {
	return r.first(r.table(ctx, ref.Kind).Clauses(forUpdate()), ref)
}

func (r *transactionRepository) first(q *gorm.DB, ref models.TransactionRef) (*models.Transaction, error) {
	var tx models.Transaction
	if err := q.Where("id = ?", ref.ID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	tx.Kind = ref.Kind
	return &tx, nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *models.Transaction, expected models.TransactionStatus) error {
	result := r.table(ctx, tx.Kind).
		Where("id = ? AND status = ?", tx.ID, expected).
		Updates(map[string]interface{}{
			"amount":           tx.Amount,
			"status":           tx.Status,
			"transaction_date": tx.TransactionDate,
			"description":      tx.Description,
			"category":         tx.Category,
			"metadata":         tx.Metadata,
			"reviewed_by":      tx.ReviewedBy,
			"reject_reason":    tx.RejectReason,
			"deleted_at":       tx.DeletedAt,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       tx.UpdatedAt,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleTransaction
	}
	tx.Version++
	return nil
}

func (r *transactionRepository) HasSettledPayment(ctx context.Context, feeID, payerID uint, now time.Time) (bool, error) {
	var count int64
	err := r.table(ctx, models.KindIncome).
		Where("fee_id = ? AND payer_id = ? AND status = ?", feeID, payerID, models.StatusSuccess).
		Scopes(notDeletedAt(now)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check fee payment: %w", err)
	}
	return count > 0, nil
}

func (r *transactionRepository) SumSettled(ctx context.Context, kind models.TransactionKind, walletIDs []uint, now time.Time) (map[uint]decimal.Decimal, error) {
	if walletIDs != nil && len(walletIDs) == 0 {
		return map[uint]decimal.Decimal{}, nil
	}

	q := r.table(ctx, kind).
		Select("wallet_id, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.StatusSuccess).
		Scopes(notDeletedAt(now))
	if walletIDs != nil {
		q = q.Where("wallet_id IN ?", walletIDs)
	}

	var rows []struct {
		WalletID uint
		Total    decimal.Decimal
	}
	if err := q.Group("wallet_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum %s transactions: %w", kind, err)
	}

	sums := make(map[uint]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.WalletID] = row.Total
	}
	return sums, nil
}
