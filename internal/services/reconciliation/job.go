package reconciliation

import (
	"context"
	"fmt"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTolerance is the largest per-field difference treated as consistent.
var DefaultTolerance = decimal.RequireFromString("0.01")

type JobConfig struct {
	Store     repositories.Store
	Wallets   WalletInitializer
	Cache     WalletInvalidator
	Tolerance decimal.Decimal
	Logger    *zap.Logger
	Metrics   MetricsCollector
	Clock     func() time.Time
}

type Job struct {
	store     repositories.Store
	wallets   WalletInitializer
	cache     WalletInvalidator
	tolerance decimal.Decimal
	log       *zap.Logger
	metrics   MetricsCollector
	now       func() time.Time
}

func NewJob(config JobConfig) *Job {
	if config.Store == nil {
		panic("store is required")
	}
	if config.Wallets == nil {
		panic("wallet initializer is required")
	}

	j := &Job{
		store:     config.Store,
		wallets:   config.Wallets,
		cache:     config.Cache,
		tolerance: config.Tolerance,
		log:       config.Logger,
		metrics:   config.Metrics,
		now:       config.Clock,
	}
	if j.cache == nil {
		j.cache = noopInvalidator{}
	}
	if !j.tolerance.IsPositive() {
		j.tolerance = DefaultTolerance
	}
	if j.log == nil {
		j.log = zap.NewNop()
	}
	j.log = j.log.Named("reconciliation")
	if j.metrics == nil {
		j.metrics = NoopMetricsCollector{}
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j
}

// Run performs one full sweep. It returns the report together with
// ErrConsistencyFailure when wallets are still inconsistent after repair.
func (j *Job) Run(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	report = &Report{StartedAt: j.now()}
	defer func() {
		report.FinishedAt = j.now()
		result := "ok"
		switch {
		case err != nil && len(report.Remaining) > 0:
			result = "inconsistent"
		case err != nil:
			result = "error"
		}
		j.metrics.RecordRunDuration(time.Since(start), result)
	}()

	j.log.Info("reconciliation started")

	created, err := j.wallets.EnsureAllWalletsExist(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to initialize wallets: %w", err)
	}
	report.WalletsCreated = created

	checked, drifted, err := j.detect(ctx)
	if err != nil {
		return report, err
	}
	report.WalletsChecked = checked
	report.Drifted = drifted
	j.metrics.RecordDriftDetected(len(drifted))

	if len(drifted) == 0 {
		j.log.Info("reconciliation finished, all wallets consistent",
			zap.Int("wallets_checked", checked),
			zap.Int("wallets_created", created),
		)
		return report, nil
	}

	for _, d := range drifted {
		j.log.Warn("wallet drift detected",
			zap.Uint("wallet_id", d.WalletID),
			zap.Uint("club_id", d.ClubID),
			zap.String("stored_balance", d.Stored.Balance.StringFixed(2)),
			zap.String("actual_balance", d.Actual.Balance.StringFixed(2)),
			zap.String("balance_diff", d.Balance.StringFixed(2)),
			zap.String("income_diff", d.Income.StringFixed(2)),
			zap.String("outcome_diff", d.Outcome.StringFixed(2)),
		)
	}

	j.repair(ctx, drifted, report)
	j.metrics.RecordWalletsRepaired(report.Repaired)

	_, remaining, err := j.detect(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to verify repaired wallets: %w", err)
	}
	report.Remaining = remaining
	if len(remaining) > 0 {
		ids := walletIDs(remaining)
		j.metrics.RecordConsistencyFailure(len(remaining))
		j.log.Error("wallets still inconsistent after reconciliation",
			zap.Int("remaining", len(remaining)),
			zap.Uints("wallet_ids", ids),
		)
		return report, fmt.Errorf("%w: %d wallets", apperrors.ErrConsistencyFailure, len(remaining))
	}

	j.log.Info("reconciliation finished",
		zap.Int("wallets_checked", checked),
		zap.Int("wallets_created", created),
		zap.Int("drifted", len(drifted)),
		zap.Int("repaired", report.Repaired),
		zap.Bool("bulk_fallback", report.BulkFallback),
	)
	return report, nil
}

// detect returns the wallets whose drift holds under their row locks. The
// unlocked scan only nominates candidates: an approval committing between
// its reads would otherwise look like drift.
func (j *Job) detect(ctx context.Context) (int, []Drift, error) {
	checked, candidates, err := j.scan(ctx)
	if err != nil || len(candidates) == 0 {
		return checked, candidates, err
	}

	var confirmed []Drift
	err = j.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		var err error
		confirmed, err = j.lockedDrift(ctx, tx, walletIDs(candidates))
		return err
	})
	if err != nil {
		return checked, nil, fmt.Errorf("failed to confirm wallet drift: %w", err)
	}
	return checked, confirmed, nil
}

// scan compares every stored wallet with the totals derived from history.
func (j *Job) scan(ctx context.Context) (int, []Drift, error) {
	now := j.now()
	wallets, err := j.store.Wallets().List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	income, err := j.store.Transactions().SumSettled(ctx, models.KindIncome, nil, now)
	if err != nil {
		return 0, nil, err
	}
	outcome, err := j.store.Transactions().SumSettled(ctx, models.KindOutcome, nil, now)
	if err != nil {
		return 0, nil, err
	}

	var drifted []Drift
	for i := range wallets {
		if d, ok := j.compare(&wallets[i], income, outcome); ok {
			drifted = append(drifted, d)
		}
	}
	return len(wallets), drifted, nil
}

// compare reports the drift of w, if any field differs by more than the tolerance.
func (j *Job) compare(w *models.Wallet, income, outcome map[uint]decimal.Decimal) (Drift, bool) {
	stored := w.Totals()
	actual := derive(w, income, outcome)
	d := Drift{
		WalletID: w.ID,
		ClubID:   w.ClubID,
		Stored:   stored,
		Actual:   actual,
		Balance:  stored.Balance.Sub(actual.Balance),
		Income:   stored.TotalIncome.Sub(actual.TotalIncome),
		Outcome:  stored.TotalOutcome.Sub(actual.TotalOutcome),
	}
	off := d.Balance.Abs().GreaterThan(j.tolerance) ||
		d.Income.Abs().GreaterThan(j.tolerance) ||
		d.Outcome.Abs().GreaterThan(j.tolerance)
	return d, off
}

// derive returns the totals w should hold given the per-wallet sums.
// Wallets absent from both maps have no settled transactions.
func derive(w *models.Wallet, income, outcome map[uint]decimal.Decimal) models.WalletTotals {
	in := income[w.ID]
	out := outcome[w.ID]
	return models.WalletTotals{
		WalletID:     w.ID,
		ClubID:       w.ClubID,
		Balance:      in.Sub(out),
		TotalIncome:  in,
		TotalOutcome: out,
	}
}

// repair overwrites the drifted wallets in one unit of work. The totals are
// recomputed under the wallet locks so that approvals committed since the
// scan are not lost. On failure each wallet is retried on its own.
func (j *Job) repair(ctx context.Context, drifted []Drift, report *Report) {
	ids := walletIDs(drifted)
	fixed, err := j.fix(ctx, ids)
	if err == nil {
		report.Repaired = fixed
		j.invalidate(ctx, drifted)
		return
	}

	j.log.Warn("bulk wallet repair failed, repairing one wallet at a time",
		zap.Int("wallets", len(ids)),
		zap.Error(err),
	)
	report.BulkFallback = true
	for _, d := range drifted {
		n, err := j.fix(ctx, []uint{d.WalletID})
		if err != nil {
			j.log.Error("wallet repair failed",
				zap.Uint("wallet_id", d.WalletID),
				zap.Uint("club_id", d.ClubID),
				zap.Error(err),
			)
			report.FailedWallets = append(report.FailedWallets, d.WalletID)
			continue
		}
		report.Repaired += n
		j.cache.InvalidateWallet(ctx, d.ClubID)
	}
}

func (j *Job) fix(ctx context.Context, ids []uint) (int, error) {
	var fixed int
	err := j.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		// Another writer may have brought a wallet back in line since the scan
		drifted, err := j.lockedDrift(ctx, tx, ids)
		if err != nil || len(drifted) == 0 {
			return err
		}

		fixes := make([]models.WalletTotals, len(drifted))
		for i, d := range drifted {
			fixes[i] = d.Actual
		}
		n, err := tx.Wallets().OverwriteTotals(ctx, fixes, j.now())
		if err != nil {
			return err
		}
		fixed = int(n)
		return nil
	})
	return fixed, err
}

// lockedDrift locks the given wallets inside tx and compares them with
// history read after the locks are held.
func (j *Job) lockedDrift(ctx context.Context, tx repositories.Store, ids []uint) ([]Drift, error) {
	locked, err := tx.Wallets().LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := j.now()
	income, err := tx.Transactions().SumSettled(ctx, models.KindIncome, ids, now)
	if err != nil {
		return nil, err
	}
	outcome, err := tx.Transactions().SumSettled(ctx, models.KindOutcome, ids, now)
	if err != nil {
		return nil, err
	}

	var drifted []Drift
	for i := range locked {
		if d, ok := j.compare(&locked[i], income, outcome); ok {
			drifted = append(drifted, d)
		}
	}
	return drifted, nil
}

func walletIDs(drift []Drift) []uint {
	ids := make([]uint, len(drift))
	for i, d := range drift {
		ids[i] = d.WalletID
	}
	return ids
}

func (j *Job) invalidate(ctx context.Context, drifted []Drift) {
	for _, d := range drifted {
		j.cache.InvalidateWallet(ctx, d.ClubID)
	}
}
