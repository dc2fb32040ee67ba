package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const walletBatchSize = 500

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Wallets() WalletRepository {
	return NewWalletRepository(s.db)
}

func (s *gormStore) Transactions() TransactionRepository {
	return NewTransactionRepository(s.db)
}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func (r *walletRepository) GetByClubID(ctx context.Context, clubID uint) (*models.Wallet, error) {
	return r.first(r.db.WithContext(ctx).Where("club_id = ?", clubID))
}

func (r *walletRepository) LockByClubID(ctx context.Context, clubID uint) (*models.Wallet, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate()).Where("club_id = ?", clubID))
}

func (r *walletRepository) LockByID(ctx context.Context, id uint) (*models.Wallet, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id))
}

func (r *walletRepository) first(q *gorm.DB) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := q.First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// LockByIDs locks the wallets in ascending id order so that concurrent
// sweeps and approvals acquire row locks in a consistent sequence.
func (r *walletRepository) LockByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var wallets []models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) List(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) CreateIfAbsent(ctx context.Context, clubID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "club_id"}}, DoNothing: true}).
		Create(models.NewWallet(clubID, time.Now()))
	if result.Error != nil {
		return false, fmt.Errorf("failed to create wallet: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *walletRepository) CreateMissing(ctx context.Context, clubIDs []uint) (int, error) {
	if len(clubIDs) == 0 {
		return 0, nil
	}
	now := time.Now()
	wallets := make([]*models.Wallet, 0, len(clubIDs))
	for _, id := range clubIDs {
		wallets = append(wallets, models.NewWallet(id, now))
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "club_id"}}, DoNothing: true}).
		CreateInBatches(wallets, walletBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to bulk create wallets: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *walletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":       wallet.Balance,
			"total_income":  wallet.TotalIncome,
			"total_outcome": wallet.TotalOutcome,
			"version":       wallet.Version,
			"updated_at":    wallet.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// OverwriteTotals replaces the numeric fields of every wallet in fixes with
// one UPDATE ... FROM (VALUES ...) statement.
func (r *walletRepository) OverwriteTotals(ctx context.Context, fixes []models.WalletTotals, at time.Time) (int64, error) {
	if len(fixes) == 0 {
		return 0, nil
	}

	rows := make([]string, 0, len(fixes))
	args := make([]interface{}, 0, len(fixes)*4+1)
	args = append(args, at)
	for _, f := range fixes {
		rows = append(rows, "(?::bigint, ?::numeric, ?::numeric, ?::numeric)")
		args = append(args, f.WalletID, f.Balance, f.TotalIncome, f.TotalOutcome)
	}

	query := `UPDATE club_wallets AS w
SET balance = v.balance,
    total_income = v.total_income,
    total_outcome = v.total_outcome,
    version = w.version + 1,
    updated_at = ?
FROM (VALUES ` + strings.Join(rows, ", ") + `) AS v(id, balance, total_income, total_outcome)
WHERE w.id = v.id`

	result := r.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to overwrite wallet totals: %w", result.Error)
	}
	return result.RowsAffected, nil
}
