package reconciliation

import (
	"context"
	"time"

	"clubledger/internal/models"

	"github.com/shopspring/decimal"
)

// WalletInitializer creates the wallets missing for existing clubs.
type WalletInitializer interface {
	EnsureAllWalletsExist(ctx context.Context) (int, error)
}

// WalletInvalidator drops cached wallet snapshots after a repair.
type WalletInvalidator interface {
	InvalidateWallet(ctx context.Context, clubID uint)
}

type MetricsCollector interface {
	RecordRunDuration(d time.Duration, result string)
	RecordDriftDetected(wallets int)
	RecordWalletsRepaired(wallets int)
	RecordConsistencyFailure(wallets int)
}

type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRunDuration(time.Duration, string) {}
func (NoopMetricsCollector) RecordDriftDetected(int)                 {}
func (NoopMetricsCollector) RecordWalletsRepaired(int)               {}
func (NoopMetricsCollector) RecordConsistencyFailure(int)            {}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateWallet(context.Context, uint) {}

// Drift is one wallet whose stored totals disagree with its history.
type Drift struct {
	WalletID uint                `json:"wallet_id"`
	ClubID   uint                `json:"club_id"`
	Stored   models.WalletTotals `json:"-"`
	Actual   models.WalletTotals `json:"-"`
	Balance  decimal.Decimal     `json:"balance_diff"`
	Income   decimal.Decimal     `json:"income_diff"`
	Outcome  decimal.Decimal     `json:"outcome_diff"`
}

// Report summarizes one run.
type Report struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	WalletsCreated int       `json:"wallets_created"`
	WalletsChecked int       `json:"wallets_checked"`
	Drifted        []Drift   `json:"drifted"`
	Repaired       int       `json:"repaired"`
	BulkFallback   bool      `json:"bulk_fallback"`
	FailedWallets  []uint    `json:"failed_wallets,omitempty"`
	Remaining      []Drift   `json:"remaining,omitempty"`
}

// Consistent reports whether the run left every wallet in line with history.
func (r *Report) Consistent() bool {
	return len(r.Remaining) == 0
}
