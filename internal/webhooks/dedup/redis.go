package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared ledger backed by SET NX with a TTL, safe across multiple
// instances receiving the same provider retries.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a Redis-backed ledger.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, ttl: DefaultTTL}
}

func redisKey(key string) string {
	return "vouchsafe:webhook:" + key
}

func (r *Redis) MarkProcessed(ctx context.Context, key string) (bool, error) {
	created, err := r.client.SetNX(ctx, redisKey(key), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marking webhook delivery: %w", err)
	}
	return created, nil
}

func (r *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking webhook delivery: %w", err)
	}
	return n > 0, nil
}
