package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet is the single financial aggregate of a club. Its numeric fields are
// a materialized view over the club's SUCCESS transactions.
type Wallet struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	ClubID       uint            `gorm:"uniqueIndex;not null" json:"club_id"`
	Balance      decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"balance"`
	TotalIncome  decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"total_income"`
	TotalOutcome decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"total_outcome"`
	Version      uint64          `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "club_wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// A wallet is always born empty; balances only move through the processor.
	w.Balance = decimal.Zero
	w.TotalIncome = decimal.Zero
	w.TotalOutcome = decimal.Zero
	return nil
}

// NewWallet returns an empty wallet for clubID.
func NewWallet(clubID uint, now time.Time) *Wallet {
	return &Wallet{
		ClubID:       clubID,
		Balance:      decimal.Zero,
		TotalIncome:  decimal.Zero,
		TotalOutcome: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Summary is the read model returned to collaborators.
func (w *Wallet) Summary() WalletSummary {
	return WalletSummary{
		ClubID:       w.ClubID,
		Balance:      w.Balance,
		TotalIncome:  w.TotalIncome,
		TotalOutcome: w.TotalOutcome,
		Version:      w.Version,
		UpdatedAt:    w.UpdatedAt,
	}
}

// Totals returns the stored numeric fields of the wallet.
func (w *Wallet) Totals() WalletTotals {
	return WalletTotals{
		WalletID:     w.ID,
		ClubID:       w.ClubID,
		Balance:      w.Balance,
		TotalIncome:  w.TotalIncome,
		TotalOutcome: w.TotalOutcome,
	}
}

// Apply adds d to the wallet fields.
func (w *Wallet) Apply(d BalanceDelta, now time.Time) {
	w.Balance = w.Balance.Add(d.Balance)
	w.TotalIncome = w.TotalIncome.Add(d.Income)
	w.TotalOutcome = w.TotalOutcome.Add(d.Outcome)
	w.Version++
	w.UpdatedAt = now
}

// WalletSummary is {balance, totalIncome, totalOutcome} for one club.
type WalletSummary struct {
	ClubID       uint            `json:"club_id"`
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalOutcome decimal.Decimal `json:"total_outcome"`
	Version      uint64          `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// WalletTotals carries the three numeric fields of a wallet, either as stored
// or as derived from transaction history.
type WalletTotals struct {
	WalletID     uint
	ClubID       uint
	Balance      decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalOutcome decimal.Decimal
}

// BalanceDelta is the signed change a transaction transition applies to a wallet.
type BalanceDelta struct {
	Balance decimal.Decimal
	Income  decimal.Decimal
	Outcome decimal.Decimal
}

func (d BalanceDelta) IsZero() bool {
	return d.Balance.IsZero() && d.Income.IsZero() && d.Outcome.IsZero()
}
