package wallet

import (
	"context"
	"errors"
	"fmt"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"

	"go.uber.org/zap"
)

type service struct {
	store repositories.Store
	clubs ClubDirectory
	cache CacheOperator
	log   *zap.Logger
}

// NewService creates a new wallet service
func NewService(
	store repositories.Store,
	clubs ClubDirectory,
	cache CacheOperator,
	log *zap.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if clubs == nil {
		panic("club directory is required")
	}

	// Cache is optional, fall back to direct reads
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &service{
		store: store,
		clubs: clubs,
		cache: cache,
		log:   log.Named("wallet"),
	}
}

func (s *service) GetOrCreateWallet(ctx context.Context, clubID uint) (*models.Wallet, error) {
	exists, err := s.clubs.ClubExists(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrClubNotFound, clubID)
	}

	created, err := s.store.Wallets().CreateIfAbsent(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("wallet created", zap.Uint("club_id", clubID))
	}

	wallet, err := s.store.Wallets().GetByClubID(ctx, clubID)
	if err != nil {
		return nil, translate(err, clubID)
	}
	return wallet, nil
}

func (s *service) EnsureAllWalletsExist(ctx context.Context) (int, error) {
	clubIDs, err := s.clubs.ListClubIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list clubs: %w", err)
	}

	wallets, err := s.store.Wallets().List(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[uint]struct{}, len(wallets))
	for _, w := range wallets {
		have[w.ClubID] = struct{}{}
	}

	var missing []uint
	for _, id := range clubIDs {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	created, err := s.store.Wallets().CreateMissing(ctx, missing)
	if err != nil {
		return 0, err
	}
	s.log.Info("missing wallets created",
		zap.Int("clubs", len(clubIDs)),
		zap.Int("missing", len(missing)),
		zap.Int("created", created),
	)
	return created, nil
}

func (s *service) GetWallet(ctx context.Context, clubID uint) (*models.WalletSummary, error) {
	// Try cache first
	cached, err := s.cache.GetWallet(ctx, clubID)
	if err != nil {
		s.log.Warn("wallet cache read failed", zap.Uint("club_id", clubID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	wallet, err := s.store.Wallets().GetByClubID(ctx, clubID)
	if err != nil {
		return nil, translate(err, clubID)
	}

	summary := wallet.Summary()
	if _, err := s.cache.CacheWallet(ctx, summary); err != nil {
		s.log.Warn("wallet cache write failed", zap.Uint("club_id", clubID), zap.Error(err))
	}
	return &summary, nil
}

// InvalidateWallet replaces the cached snapshot with the committed wallet.
// Snapshots are versioned, so a reader that loaded the wallet before the
// commit cannot put its older copy back.
func (s *service) InvalidateWallet(ctx context.Context, clubID uint) {
	wallet, err := s.store.Wallets().GetByClubID(ctx, clubID)
	if err == nil {
		if _, err = s.cache.CacheWallet(ctx, wallet.Summary()); err == nil {
			return
		}
	}

	s.log.Warn("wallet cache refresh failed, dropping snapshot", zap.Uint("club_id", clubID), zap.Error(err))
	if err := s.cache.InvalidateWallet(ctx, clubID); err != nil {
		s.log.Warn("wallet cache invalidation failed", zap.Uint("club_id", clubID), zap.Error(err))
	}
}

// LockOrCreate returns the club's wallet locked for update inside tx,
// creating it first when the club has none yet.
func LockOrCreate(ctx context.Context, tx repositories.Store, clubID uint) (*models.Wallet, error) {
	wallet, err := tx.Wallets().LockByClubID(ctx, clubID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, err
	}

	if _, err := tx.Wallets().CreateIfAbsent(ctx, clubID); err != nil {
		return nil, err
	}
	wallet, err = tx.Wallets().LockByClubID(ctx, clubID)
	if err != nil {
		return nil, translate(err, clubID)
	}
	return wallet, nil
}
