package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"

	"go.uber.org/zap"
)

type ProcessorConfig struct {
	Logger  *zap.Logger
	Metrics MetricsCollector
	Clock   func() time.Time
}

// Processor keeps a wallet in step with the transactions of its club. It never
// opens its own unit of work: every call runs on the caller's store.
type Processor struct {
	log     *zap.Logger
	metrics MetricsCollector
	now     func() time.Time
}

func NewProcessor(config ProcessorConfig) *Processor {
	p := &Processor{
		log:     config.Logger,
		metrics: config.Metrics,
		now:     config.Clock,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.metrics == nil {
		p.metrics = NoopMetricsCollector{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Contribution is the wallet effect of a transaction in the given state.
// Only SUCCESS transactions move money.
func Contribution(kind models.TransactionKind, state models.TransactionState) models.BalanceDelta {
	var d models.BalanceDelta
	if !state.Status.Settled() {
		return d
	}
	switch kind {
	case models.KindIncome:
		d.Balance = state.Amount
		d.Income = state.Amount
	case models.KindOutcome:
		d.Balance = state.Amount.Neg()
		d.Outcome = state.Amount
	}
	return d
}

// Delta is the change moving a transaction from prev to next applies to its
// wallet. A nil prev stands for a transaction that did not exist yet.
func Delta(kind models.TransactionKind, prev *models.TransactionState, next models.TransactionState) models.BalanceDelta {
	d := Contribution(kind, next)
	if prev == nil {
		return d
	}
	old := Contribution(kind, *prev)
	return models.BalanceDelta{
		Balance: d.Balance.Sub(old.Balance),
		Income:  d.Income.Sub(old.Income),
		Outcome: d.Outcome.Sub(old.Outcome),
	}
}

// Apply writes the wallet side of next's transition. It returns the updated
// wallet, or nil when the transition has no wallet effect.
func (p *Processor) Apply(
	ctx context.Context,
	tx repositories.Store,
	prev *models.TransactionState,
	next *models.Transaction,
) (*models.Wallet, error) {
	delta := Delta(next.Kind, prev, next.State())
	if delta.IsZero() {
		return nil, nil
	}

	wallet, err := tx.Wallets().LockByID(ctx, next.WalletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, fmt.Errorf("%w: id %d", apperrors.ErrWalletNotFound, next.WalletID)
		}
		return nil, err
	}

	before := wallet.Balance
	if delta.Balance.IsNegative() && before.Add(delta.Balance).IsNegative() {
		p.log.Info("outcome rejected by balance guard",
			zap.Uint("club_id", wallet.ClubID),
			zap.Stringer("transaction", next.Ref()),
			zap.String("balance", before.StringFixed(AmountScale)),
			zap.String("required", delta.Balance.Neg().StringFixed(AmountScale)),
		)
		return nil, fmt.Errorf("%w: balance %s, required %s",
			apperrors.ErrInsufficientBalance,
			before.StringFixed(AmountScale),
			delta.Balance.Neg().StringFixed(AmountScale),
		)
	}

	wallet.Apply(delta, p.now())
	if err := tx.Wallets().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	p.metrics.RecordBalanceChange(wallet.ClubID, before, wallet.Balance)
	p.log.Debug("wallet updated",
		zap.Uint("club_id", wallet.ClubID),
		zap.Stringer("transaction", next.Ref()),
		zap.String("balance", wallet.Balance.StringFixed(AmountScale)),
		zap.Uint64("version", wallet.Version),
	)
	return wallet, nil
}
