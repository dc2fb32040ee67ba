package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind selects the stream (and table) a transaction belongs to.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindOutcome TransactionKind = "outcome"
)

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindOutcome
}

// Table returns the table backing the stream.
func (k TransactionKind) Table() string {
	if k == KindOutcome {
		return "outcome_transactions"
	}
	return "income_transactions"
}

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusSuccess    TransactionStatus = "SUCCESS"
	StatusCancelled  TransactionStatus = "CANCELLED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusRefunded   TransactionStatus = "REFUNDED"
	StatusExpired    TransactionStatus = "EXPIRED"
)

// Settled reports whether the status contributes to the wallet.
func (s TransactionStatus) Settled() bool {
	return s == StatusSuccess
}

// Deletable reports whether a transaction in this status may be soft-deleted.
func (s TransactionStatus) Deletable() bool {
	return s == StatusPending || s == StatusCancelled
}

// DeletionState is the soft-delete tri-state of a transaction.
type DeletionState int

const (
	Active DeletionState = iota
	Deleted
	DeletionScheduled
)

// Transaction is a row of either income_transactions or outcome_transactions.
// Kind is not persisted; it is implied by the table the row was read from.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Kind            TransactionKind   `gorm:"-" json:"kind"`
	WalletID        uint              `gorm:"index;not null" json:"wallet_id"`
	ClubID          uint              `gorm:"index;not null" json:"club_id"`
	Amount          decimal.Decimal   `gorm:"type:numeric(15,2);not null" json:"amount"`
	Status          TransactionStatus `gorm:"type:varchar(16);index;not null;default:'PENDING'" json:"status"`
	TransactionDate time.Time         `gorm:"not null" json:"transaction_date"`
	Description     string            `json:"description"`
	Category        string            `gorm:"type:varchar(64)" json:"category,omitempty"`
	Metadata        JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedBy       uint              `gorm:"not null" json:"created_by"`
	ReviewedBy      *uint             `json:"reviewed_by,omitempty"`
	RejectReason    string            `json:"reject_reason,omitempty"`
	FeeID           *uint             `gorm:"index" json:"fee_id,omitempty"`
	PayerID         *uint             `gorm:"index" json:"payer_id,omitempty"`
	DeletedAt       *time.Time        `gorm:"index" json:"deleted_at,omitempty"`
	Version         uint64            `gorm:"not null;default:0" json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TransactionRef addresses one transaction across both streams.
type TransactionRef struct {
	Kind TransactionKind `json:"kind"`
	ID   uuid.UUID       `json:"id"`
}

func (r TransactionRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// TransactionState is the part of a transaction that decides its wallet effect.
type TransactionState struct {
	Status TransactionStatus
	Amount decimal.Decimal
}

func (t *Transaction) Ref() TransactionRef {
	return TransactionRef{Kind: t.Kind, ID: t.ID}
}

func (t *Transaction) State() TransactionState {
	return TransactionState{Status: t.Status, Amount: t.Amount}
}

// DeletionState classifies the soft-delete marker relative to now.
func (t *Transaction) DeletionState(now time.Time) DeletionState {
	switch {
	case t.DeletedAt == nil:
		return Active
	case t.DeletedAt.After(now):
		return DeletionScheduled
	default:
		return Deleted
	}
}

// CountsAt reports whether the transaction is part of the ledger at now.
func (t *Transaction) CountsAt(now time.Time) bool {
	return t.DeletionState(now) != Deleted
}

// IsDuplicatePaymentCandidate reports whether the duplicate payment guard applies.
func (t *Transaction) IsDuplicatePaymentCandidate() bool {
	return t.Kind == KindIncome && t.FeeID != nil && t.PayerID != nil
}

// IncomeTransaction and OutcomeTransaction bind the shared row shape to its
// table for schema migration. Queries address the tables through Kind.Table().
type IncomeTransaction struct {
	Transaction
}

func (IncomeTransaction) TableName() string {
	return KindIncome.Table()
}

type OutcomeTransaction struct {
	Transaction
}

func (OutcomeTransaction) TableName() string {
	return KindOutcome.Table()
}
