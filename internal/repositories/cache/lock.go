package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when a lock expired before it was released.
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// LockManager hands out Redis backed distributed locks (RedLock).
type LockManager struct {
	redsync *redsync.Redsync
}

func NewLockManager(client redis.UniversalClient) *LockManager {
	return &LockManager{redsync: redsync.New(goredis.NewPool(client))}
}

// TryLock makes a single attempt to take key for ttl. A lock held elsewhere
// is reported as acquired == false with a nil error.
func (m *LockManager) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("lock key cannot be empty")
	}

	mutex := m.redsync.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) ||
			strings.Contains(err.Error(), "lock already taken") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	unlock := func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if ok {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLockNotHeld, key, err)
		}
		return ErrLockNotHeld
	}
	return unlock, true, nil
}
