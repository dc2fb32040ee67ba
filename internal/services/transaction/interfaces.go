package transaction

import (
	"context"
	"time"

	"clubledger/internal/models"

	"github.com/shopspring/decimal"
)

// Service drives the transaction lifecycle of club wallets.
type Service interface {
	CreateTransaction(ctx context.Context, req CreateRequest) (models.TransactionRef, error)
	ApproveTransaction(ctx context.Context, ref models.TransactionRef, approverID uint) error
	RejectTransaction(ctx context.Context, ref models.TransactionRef, approverID uint, reason string) error
	EditTransaction(ctx context.Context, ref models.TransactionRef, req EditRequest) error
	DeleteTransaction(ctx context.Context, ref models.TransactionRef) error
	GetTransaction(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error)
}

// OfficerChecker answers whether an actor holds an officer role in a club.
type OfficerChecker interface {
	IsClubOfficer(ctx context.Context, actorID, clubID uint) (bool, error)
}

type ClubDirectory interface {
	ClubExists(ctx context.Context, clubID uint) (bool, error)
}

// WalletInvalidator drops cached wallet snapshots after a balance write.
type WalletInvalidator interface {
	InvalidateWallet(ctx context.Context, clubID uint)
}

type MetricsCollector interface {
	RecordOperationDuration(operation string, d time.Duration)
	RecordOperationResult(operation, result string)
	RecordBalanceChange(clubID uint, oldBalance, newBalance decimal.Decimal)
}

type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperationDuration(string, time.Duration)              {}
func (NoopMetricsCollector) RecordOperationResult(string, string)                       {}
func (NoopMetricsCollector) RecordBalanceChange(uint, decimal.Decimal, decimal.Decimal) {}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateWallet(context.Context, uint) {}
