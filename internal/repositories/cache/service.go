package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clubledger/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// storeIfNewer writes a versioned snapshot unless the cached one is at least
// as recent. KEYS[1] snapshot hash; ARGV version, payload, ttl in ms.
var storeIfNewer = redis.NewScript(`
local cached = redis.call('HGET', KEYS[1], 'v')
if cached and tonumber(cached) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

func (s *CacheService) walletKey(clubID uint) string {
	return s.GenerateKey("wallet", "club", clubID)
}

// CacheWallet stores the snapshot unless a newer wallet version is already
// cached. It reports whether the snapshot was written.
func (s *CacheService) CacheWallet(ctx context.Context, wallet models.WalletSummary) (bool, error) {
	data, err := json.Marshal(wallet)
	if err != nil {
		return false, fmt.Errorf("failed to marshal wallet snapshot: %w", err)
	}
	stored, err := storeIfNewer.Run(ctx, s.client,
		[]string{s.walletKey(wallet.ClubID)},
		wallet.Version, data, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache wallet: %w", err)
	}
	return stored == 1, nil
}

// GetWallet returns the cached snapshot, or nil on a miss.
func (s *CacheService) GetWallet(ctx context.Context, clubID uint) (*models.WalletSummary, error) {
	data, err := s.client.HGet(ctx, s.walletKey(clubID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached wallet: %w", err)
	}

	var wallet models.WalletSummary
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached wallet: %w", err)
	}
	return &wallet, nil
}

func (s *CacheService) InvalidateWallet(ctx context.Context, clubID uint) error {
	return s.Delete(ctx, s.walletKey(clubID))
}
