package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis guards the order-split fan-out. The slip upload that triggers a
// split may be retried by the client; the lock makes sure only one
// request performs the split while the others bounce off with a conflict.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{Client: client, TTL: ttl}
}

func splitKey(orderID string) string {
	return "order_split:" + orderID
}

// AcquireSplitLock claims the split lock for an order. Returns false when
// another request already holds it.
func (r *Redis) AcquireSplitLock(ctx context.Context, orderID, requestID string) (bool, error) {
	return r.Client.SetNX(ctx, splitKey(orderID), requestID, r.TTL).Result()
}

// ReleaseSplitLock releases the lock only if this request still owns it.
// A lock that expired and was re-acquired by someone else stays put.
func (r *Redis) ReleaseSplitLock(ctx context.Context, orderID, requestID string) error {
	key := splitKey(orderID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == requestID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
