package transaction

import (
	"context"
	"fmt"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"
	"clubledger/internal/services/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	Store    repositories.Store
	Clubs    ClubDirectory
	Officers OfficerChecker
	Wallets  WalletInvalidator
	Logger   *zap.Logger
	Metrics  MetricsCollector
	Clock    func() time.Time
}

type service struct {
	store     repositories.Store
	clubs     ClubDirectory
	officers  OfficerChecker
	wallets   WalletInvalidator
	processor *Processor
	log       *zap.Logger
	metrics   MetricsCollector
	now       func() time.Time
}

// NewService creates the transaction approval service
func NewService(config ServiceConfig) Service {
	if config.Store == nil {
		panic("store is required")
	}
	if config.Clubs == nil {
		panic("club directory is required")
	}
	if config.Officers == nil {
		panic("officer checker is required")
	}

	if config.Wallets == nil {
		config.Wallets = noopInvalidator{}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = NoopMetricsCollector{}
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	log := config.Logger.Named("transaction")
	return &service{
		store:    config.Store,
		clubs:    config.Clubs,
		officers: config.Officers,
		wallets:  config.Wallets,
		processor: NewProcessor(ProcessorConfig{
			Logger:  log,
			Metrics: config.Metrics,
			Clock:   config.Clock,
		}),
		log:     log,
		metrics: config.Metrics,
		now:     config.Clock,
	}
}

func (s *service) CreateTransaction(ctx context.Context, req CreateRequest) (ref models.TransactionRef, err error) {
	start := time.Now()
	defer func() { s.observe(OpCreate, start, err) }()

	if err := req.validate(); err != nil {
		return models.TransactionRef{}, err
	}

	exists, err := s.clubs.ClubExists(ctx, req.ClubID)
	if err != nil {
		return models.TransactionRef{}, fmt.Errorf("failed to look up club: %w", err)
	}
	if !exists {
		return models.TransactionRef{}, fmt.Errorf("%w: %d", apperrors.ErrClubNotFound, req.ClubID)
	}

	officer, err := s.officers.IsClubOfficer(ctx, req.ActorID, req.ClubID)
	if err != nil {
		return models.TransactionRef{}, fmt.Errorf("failed to resolve actor role: %w", err)
	}

	now := s.now()
	tx := s.newTransaction(req, now)
	if officer {
		// Officers settle directly, no approval round
		tx.Status = models.StatusSuccess
		tx.ReviewedBy = &req.ActorID
	}

	var updated *models.Wallet
	err = s.store.WithinTransaction(ctx, func(dbtx repositories.Store) error {
		// The wallet lock also serializes the duplicate payment check below
		w, err := wallet.LockOrCreate(ctx, dbtx, req.ClubID)
		if err != nil {
			return err
		}
		tx.WalletID = w.ID

		if tx.IsDuplicatePaymentCandidate() {
			settled, err := dbtx.Transactions().HasSettledPayment(ctx, *tx.FeeID, *tx.PayerID, now)
			if err != nil {
				return err
			}
			if settled {
				return apperrors.ErrDuplicatePayment
			}
		}

		if err := dbtx.Transactions().Create(ctx, tx); err != nil {
			return translate(err, tx.Ref(), apperrors.ErrAlreadyProcessed)
		}

		updated, err = s.processor.Apply(ctx, dbtx, nil, tx)
		return err
	})
	if err != nil {
		s.log.Info("transaction rejected",
			zap.String("kind", string(req.Kind)),
			zap.Uint("club_id", req.ClubID),
			zap.Uint("actor_id", req.ActorID),
			zap.Error(err),
		)
		return models.TransactionRef{}, err
	}

	s.afterCommit(ctx, updated)
	s.log.Info("transaction created",
		zap.Stringer("transaction", tx.Ref()),
		zap.Uint("club_id", tx.ClubID),
		zap.String("status", string(tx.Status)),
		zap.String("amount", tx.Amount.StringFixed(AmountScale)),
		zap.Bool("officer", officer),
	)
	return tx.Ref(), nil
}

func (s *service) newTransaction(req CreateRequest, now time.Time) *models.Transaction {
	tx := &models.Transaction{
		ID:              uuid.New(),
		Kind:            req.Kind,
		ClubID:          req.ClubID,
		Amount:          req.Amount,
		Status:          models.StatusPending,
		TransactionDate: now,
		Description:     req.Description,
		Category:        req.Category,
		Metadata:        models.NewJSON(req.Metadata),
		CreatedBy:       req.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.TransactionDate != nil {
		tx.TransactionDate = *req.TransactionDate
	}
	if req.Kind == models.KindIncome {
		tx.FeeID = req.FeeID
		tx.PayerID = req.PayerID
	}
	return tx
}

func (s *service) ApproveTransaction(ctx context.Context, ref models.TransactionRef, approverID uint) error {
	return s.mutate(ctx, OpApprove, ref, apperrors.ErrAlreadyProcessed,
		func(dbtx repositories.Store, tx *models.Transaction, now time.Time) error {
			if tx.Status != models.StatusPending {
				return fmt.Errorf("%w: status %s", apperrors.ErrAlreadyProcessed, tx.Status)
			}
			if tx.IsDuplicatePaymentCandidate() {
				// Same wallet lock as creation, so the check sees every settled payment
				if _, err := dbtx.Wallets().LockByID(ctx, tx.WalletID); err != nil {
					return translate(err, tx.Ref(), apperrors.ErrAlreadyProcessed)
				}
				settled, err := dbtx.Transactions().HasSettledPayment(ctx, *tx.FeeID, *tx.PayerID, now)
				if err != nil {
					return err
				}
				if settled {
					return apperrors.ErrDuplicatePayment
				}
			}
			tx.Status = models.StatusSuccess
			tx.ReviewedBy = &approverID
			return nil
		})
}

func (s *service) RejectTransaction(ctx context.Context, ref models.TransactionRef, approverID uint, reason string) error {
	return s.mutate(ctx, OpReject, ref, apperrors.ErrAlreadyProcessed,
		func(_ repositories.Store, tx *models.Transaction, _ time.Time) error {
			if tx.Status != models.StatusPending {
				return fmt.Errorf("%w: status %s", apperrors.ErrAlreadyProcessed, tx.Status)
			}
			tx.Status = models.StatusCancelled
			tx.ReviewedBy = &approverID
			tx.RejectReason = reason
			return nil
		})
}

func (s *service) EditTransaction(ctx context.Context, ref models.TransactionRef, req EditRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	return s.mutate(ctx, OpEdit, ref, apperrors.ErrCannotUpdate,
		func(_ repositories.Store, tx *models.Transaction, _ time.Time) error {
			if tx.Status != models.StatusPending {
				return fmt.Errorf("%w: status %s", apperrors.ErrCannotUpdate, tx.Status)
			}
			if req.Amount != nil {
				tx.Amount = *req.Amount
			}
			if req.TransactionDate != nil {
				tx.TransactionDate = *req.TransactionDate
			}
			if req.Description != nil {
				tx.Description = *req.Description
			}
			if req.Category != nil {
				tx.Category = *req.Category
			}
			if req.Metadata != nil {
				tx.Metadata = models.NewJSON(req.Metadata)
			}
			return nil
		})
}

func (s *service) DeleteTransaction(ctx context.Context, ref models.TransactionRef) error {
	return s.mutate(ctx, OpDelete, ref, apperrors.ErrCannotDelete,
		func(_ repositories.Store, tx *models.Transaction, now time.Time) error {
			if !tx.Status.Deletable() {
				return fmt.Errorf("%w: status %s", apperrors.ErrCannotDelete, tx.Status)
			}
			tx.DeletedAt = &now
			return nil
		})
}

func (s *service) GetTransaction(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error) {
	if !ref.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidKind, ref.Kind)
	}
	tx, err := s.store.Transactions().Get(ctx, ref)
	if err != nil {
		return nil, translate(err, ref, apperrors.ErrAlreadyProcessed)
	}
	if !tx.CountsAt(s.now()) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTransactionNotFound, ref)
	}
	return tx, nil
}

type mutation func(dbtx repositories.Store, tx *models.Transaction, now time.Time) error

// mutate runs one status or field change of an existing transaction as a
// single unit of work: row lock, domain check, wallet write, conditional row
// write. stale is reported when the row changed status under us.
func (s *service) mutate(
	ctx context.Context,
	op string,
	ref models.TransactionRef,
	stale *apperrors.DomainError,
	change mutation,
) (err error) {
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if !ref.Kind.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidKind, ref.Kind)
	}

	var (
		updated *models.Wallet
		status  models.TransactionStatus
	)
	err = s.store.WithinTransaction(ctx, func(dbtx repositories.Store) error {
		tx, err := dbtx.Transactions().Lock(ctx, ref)
		if err != nil {
			return translate(err, ref, stale)
		}

		now := s.now()
		if !tx.CountsAt(now) {
			return fmt.Errorf("%w: %s", apperrors.ErrTransactionNotFound, ref)
		}

		prev := tx.State()
		expected := tx.Status
		if err := change(dbtx, tx, now); err != nil {
			return err
		}
		tx.UpdatedAt = now

		// Wallet first, then the row: both commit or neither does
		if updated, err = s.processor.Apply(ctx, dbtx, &prev, tx); err != nil {
			return err
		}
		if err := dbtx.Transactions().Update(ctx, tx, expected); err != nil {
			return translate(err, ref, stale)
		}
		status = tx.Status
		return nil
	})
	if err != nil {
		s.log.Info("transaction change rejected",
			zap.String("operation", op),
			zap.Stringer("transaction", ref),
			zap.Error(err),
		)
		return err
	}

	s.afterCommit(ctx, updated)
	s.log.Info("transaction updated",
		zap.String("operation", op),
		zap.Stringer("transaction", ref),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *service) afterCommit(ctx context.Context, updated *models.Wallet) {
	if updated != nil {
		s.wallets.InvalidateWallet(ctx, updated.ClubID)
	}
}

func (s *service) observe(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	s.metrics.RecordOperationResult(op, resultOf(err))
}
