package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Advisory locks over Redis SET NX PX. Best effort only: they reduce
// contention on hot stock rows, they do not carry correctness. The
// conditional SQL updates remain the source of truth.

const (
	stockLockTTL = 10 * time.Second
	orderLockTTL = 30 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held advisory lock. Release it when the guarded section ends.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// AcquireStockLock takes a short lock for one (productID, size) pair.
// Returns nil without error when the lock is already held elsewhere.
func (r *RedisClient) AcquireStockLock(ctx context.Context, productID uuid.UUID, size string) (*Lock, error) {
	key := fmt.Sprintf("lock:stock:%s:%s", productID, size)
	return r.acquire(ctx, key, stockLockTTL)
}

// AcquireOrderLock guards order commit and webhook processing for one order.
func (r *RedisClient) AcquireOrderLock(ctx context.Context, orderID uuid.UUID) (*Lock, error) {
	key := fmt.Sprintf("lock:order:%s", orderID)
	return r.acquire(ctx, key, orderLockTTL)
}

func (r *RedisClient) acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()

	ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	return &Lock{client: r.Client, key: key, token: token}, nil
}

// Release deletes the lock only if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
