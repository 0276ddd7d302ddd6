package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKey = "frames:online"

// RedisPresenceStore keeps the advisory online-frames set in a single ZSET
// scored by last-heartbeat time. Stale members are pruned on read.
type RedisPresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPresenceStore(rdb *redis.Client, ttl time.Duration) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// MarkOnline adds/updates the frame with the current timestamp.
func (p *RedisPresenceStore) MarkOnline(
	ctx context.Context,
	frameID string,
	ttl time.Duration,
) error {
	now := time.Now().Unix()
	err := p.rdb.ZAdd(ctx, presenceKey, redis.Z{
		Score:  float64(now),
		Member: frameID,
	}).Err()
	if err != nil {
		return err
	}
	// Expire the whole set too, so an idle deployment doesn't leak the key.
	return p.rdb.Expire(ctx, presenceKey, ttl*2).Err()
}

// ListOnline returns frames that heartbeated within the freshness window.
func (p *RedisPresenceStore) ListOnline(ctx context.Context) ([]string, error) {
	threshold := time.Now().Add(-p.ttl).Unix()

	// Remove stale members first (self-cleaning)
	p.rdb.ZRemRangeByScore(ctx, presenceKey, "-inf", strconv.FormatInt(threshold, 10))

	return p.rdb.ZRange(ctx, presenceKey, 0, -1).Result()
}

func (p *RedisPresenceStore) MarkOffline(ctx context.Context, frameID string) error {
	return p.rdb.ZRem(ctx, presenceKey, frameID).Err()
}
