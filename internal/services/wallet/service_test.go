package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"
	"clubledger/internal/repositories/cache"
	"clubledger/internal/repositories/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClubs struct {
	mock.Mock
}

func (m *MockClubs) ClubExists(ctx context.Context, clubID uint) (bool, error) {
	args := m.Called(ctx, clubID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClubs) ListClubIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func TestWalletService_GetOrCreateWallet(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an empty wallet once", func(t *testing.T) {
		store := memory.NewStore()
		clubs := new(MockClubs)
		clubs.On("ClubExists", mock.Anything, uint(1)).Return(true, nil)
		svc := NewService(store, clubs, nil, nil)

		first, err := svc.GetOrCreateWallet(ctx, 1)
		require.NoError(t, err)
		assert.True(t, first.Balance.IsZero())
		assert.True(t, first.TotalIncome.IsZero())
		assert.True(t, first.TotalOutcome.IsZero())

		second, err := svc.GetOrCreateWallet(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		clubs.AssertExpectations(t)
	})

	t.Run("unknown club", func(t *testing.T) {
		clubs := new(MockClubs)
		clubs.On("ClubExists", mock.Anything, uint(404)).Return(false, nil)
		svc := NewService(memory.NewStore(), clubs, nil, nil)

		_, err := svc.GetOrCreateWallet(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrClubNotFound)
	})

	t.Run("concurrent first access yields one wallet", func(t *testing.T) {
		store := memory.NewStore()
		clubs := new(MockClubs)
		clubs.On("ClubExists", mock.Anything, uint(5)).Return(true, nil)
		svc := NewService(store, clubs, nil, nil)

		const workers = 16
		ids := make([]uint, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				w, err := svc.GetOrCreateWallet(ctx, 5)
				if assert.NoError(t, err) {
					ids[i] = w.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		wallets, err := store.Wallets().List(ctx)
		require.NoError(t, err)
		assert.Len(t, wallets, 1)
	})
}

func TestWalletService_EnsureAllWalletsExist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clubs := new(MockClubs)
	clubs.On("ClubExists", mock.Anything, uint(2)).Return(true, nil)
	clubs.On("ListClubIDs", mock.Anything).Return([]uint{1, 2, 3}, nil)
	svc := NewService(store, clubs, nil, nil)

	_, err := svc.GetOrCreateWallet(ctx, 2)
	require.NoError(t, err)

	created, err := svc.EnsureAllWalletsExist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = svc.EnsureAllWalletsExist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	wallets, err := store.Wallets().List(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 3)
}

func TestWalletService_GetWallet(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cacheService := cache.NewCacheService(client, time.Minute)

	store := memory.NewStore()
	clubs := new(MockClubs)
	clubs.On("ClubExists", mock.Anything, uint(8)).Return(true, nil)
	svc := NewService(store, clubs, cacheService, nil)

	_, err := svc.GetWallet(ctx, 8)
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)

	_, err = svc.GetOrCreateWallet(ctx, 8)
	require.NoError(t, err)
	store.SetWalletTotals(8, decimal.NewFromInt(40), decimal.NewFromInt(40), decimal.Zero)

	summary, err := svc.GetWallet(ctx, 8)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(40)))
	assert.True(t, mr.Exists("wallet:club:8"))

	// Served from cache until invalidated
	commitTotals(t, store, 8, decimal.NewFromInt(10))
	summary, err = svc.GetWallet(ctx, 8)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(40)))

	svc.InvalidateWallet(ctx, 8)
	summary, err = svc.GetWallet(ctx, 8)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(10)))
}

// commitTotals overwrites the wallet through the repository, bumping its version.
func commitTotals(t *testing.T, store repositories.Store, clubID uint, balance decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	w, err := store.Wallets().GetByClubID(ctx, clubID)
	require.NoError(t, err)
	_, err = store.Wallets().OverwriteTotals(ctx, []models.WalletTotals{{
		WalletID:     w.ID,
		ClubID:       clubID,
		Balance:      balance,
		TotalIncome:  balance,
		TotalOutcome: decimal.Zero,
	}}, time.Now())
	require.NoError(t, err)
}

func TestWalletService_StaleReadAfterCommit(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := memory.NewStore()
	clubs := new(MockClubs)
	clubs.On("ClubExists", mock.Anything, uint(3)).Return(true, nil)
	seed := NewService(inner, clubs, nil, nil)
	_, err := seed.GetOrCreateWallet(ctx, 3)
	require.NoError(t, err)

	// A writer commits and refreshes the cache after the reader loaded the
	// wallet but before the reader caches its copy.
	store := &commitAfterReadStore{Store: inner}
	svc := NewService(store, clubs, cache.NewCacheService(client, time.Minute), nil)
	store.onRead = func() {
		commitTotals(t, inner, 3, decimal.NewFromInt(25))
		svc.InvalidateWallet(ctx, 3)
	}

	stale, err := svc.GetWallet(ctx, 3)
	require.NoError(t, err)
	assert.True(t, stale.Balance.IsZero())

	summary, err := svc.GetWallet(ctx, 3)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(25)), "cached balance %s", summary.Balance)
	assert.Equal(t, uint64(1), summary.Version)
}

// commitAfterReadStore runs onRead once, after the first wallet read returns.
type commitAfterReadStore struct {
	repositories.Store
	onRead func()
	fired  bool
}

func (s *commitAfterReadStore) Wallets() repositories.WalletRepository {
	return &commitAfterReadWallets{WalletRepository: s.Store.Wallets(), store: s}
}

type commitAfterReadWallets struct {
	repositories.WalletRepository
	store *commitAfterReadStore
}

func (w *commitAfterReadWallets) GetByClubID(ctx context.Context, clubID uint) (*models.Wallet, error) {
	wallet, err := w.WalletRepository.GetByClubID(ctx, clubID)
	if !w.store.fired {
		w.store.fired = true
		w.store.onRead()
	}
	return wallet, err
}

func TestLockOrCreate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var walletID uint
	err := store.WithinTransaction(ctx, func(tx repositories.Store) error {
		w, err := LockOrCreate(ctx, tx, 12)
		if err != nil {
			return err
		}
		walletID = w.ID
		return nil
	})
	require.NoError(t, err)

	w, err := store.Wallets().GetByClubID(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, walletID, w.ID)
	assert.Equal(t, models.WalletSummary{ClubID: 12, Balance: w.Balance, TotalIncome: w.TotalIncome, TotalOutcome: w.TotalOutcome, Version: w.Version, UpdatedAt: w.UpdatedAt}, w.Summary())
}
