package wallet

import (
	"context"

	"clubledger/internal/models"
)

// Service defines the wallet service interface
type Service interface {
	GetOrCreateWallet(ctx context.Context, clubID uint) (*models.Wallet, error)
	EnsureAllWalletsExist(ctx context.Context) (int, error)
	GetWallet(ctx context.Context, clubID uint) (*models.WalletSummary, error)
	InvalidateWallet(ctx context.Context, clubID uint)
}

// ClubDirectory is the club existence capability consumed from the
// membership subsystem.
type ClubDirectory interface {
	ClubExists(ctx context.Context, clubID uint) (bool, error)
	ListClubIDs(ctx context.Context) ([]uint, error)
}

// CacheOperator defines the caching operations needed for wallet reads
type CacheOperator interface {
	GetWallet(ctx context.Context, clubID uint) (*models.WalletSummary, error)
	CacheWallet(ctx context.Context, wallet models.WalletSummary) (bool, error)
	InvalidateWallet(ctx context.Context, clubID uint) error
}

type noopCache struct{}

func (noopCache) GetWallet(context.Context, uint) (*models.WalletSummary, error)  { return nil, nil }
func (noopCache) CacheWallet(context.Context, models.WalletSummary) (bool, error) { return false, nil }
func (noopCache) InvalidateWallet(context.Context, uint) error                    { return nil }
