package repositories

import (
	"context"
	"errors"
	"time"

	"clubledger/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrStaleTransaction is returned when a conditional write finds the row
	// no longer in the status the caller read.
	ErrStaleTransaction = errors.New("transaction changed concurrently")
	// ErrDuplicateSettlement is returned when a write would give a payer a
	// second SUCCESS income transaction against the same fee.
	ErrDuplicateSettlement = errors.New("fee already settled by payer")
)

// Store is the unit-of-work boundary of the ledger. Repositories obtained
// from the Store passed to fn share one database transaction.
type Store interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// WalletRepository defines the wallet-related database operations
type WalletRepository interface {
	// Reads
	GetByClubID(ctx context.Context, clubID uint) (*models.Wallet, error)
	List(ctx context.Context) ([]models.Wallet, error)

	// Row locks, only meaningful inside WithinTransaction
	LockByClubID(ctx context.Context, clubID uint) (*models.Wallet, error)
	LockByID(ctx context.Context, id uint) (*models.Wallet, error)
	LockByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error)

	// Creation, both idempotent under concurrent callers
	CreateIfAbsent(ctx context.Context, clubID uint) (bool, error)
	CreateMissing(ctx context.Context, clubIDs []uint) (int, error)

	// Writes
	Save(ctx context.Context, wallet *models.Wallet) error
	OverwriteTotals(ctx context.Context, fixes []models.WalletTotals, at time.Time) (int64, error)
}

// TransactionRepository defines operations over the income and outcome streams
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error)
	Lock(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error)
	// Update writes tx only if its stored status still equals expected.
	Update(ctx context.Context, tx *models.Transaction, expected models.TransactionStatus) error

	HasSettledPayment(ctx context.Context, feeID, payerID uint, now time.Time) (bool, error)
	// SumSettled sums SUCCESS, not deleted amounts per wallet. A nil
	// walletIDs means every wallet.
	SumSettled(ctx context.Context, kind models.TransactionKind, walletIDs []uint, now time.Time) (map[uint]decimal.Decimal, error)
}
