package ingest

import (
	"context"
	"time"

	"pii-vault/pkg/logger"
	"pii-vault/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisGuard backs the ingest Guard with a redis slot per image id. TTL
// bounds slot lifetime so a crashed ingestion cannot block a retry forever.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, imageID string) (bool, error) {
	return utils.AcquireIngestSlot(ctx, g.rdb, imageID, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, imageID string) {
	if err := utils.ReleaseIngestSlot(ctx, g.rdb, imageID); err != nil {
		logger.From(ctx).Warn("ingest slot release failed", "image_id", imageID, "err", err)
	}
}
