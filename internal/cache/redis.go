package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/venturematch/venture-match/internal/config"
)

// RedisCache fronts the relational store with short-lived derived state:
// cached feed pages plus the version counters that invalidate them. It is
// never authoritative for quota or match state.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// --- feed page cache ---
//
// Page keys embed two counters: a per-viewer version (bumped on every write
// involving the viewer) and a global rank epoch (bumped when any profile's
// attributes change, since that profile may be embedded in anyone's cached
// page). Bumping a counter orphans old keys; the page TTL reclaims them.

func (c *RedisCache) keyForFeedVersion(viewerID uint64) string {
	return fmt.Sprintf("feed:ver:%d", viewerID)
}

const rankEpochKey = "feed:epoch"

// FeedVersion returns the viewer's current cache version (0 if unset).
func (c *RedisCache) FeedVersion(ctx context.Context, viewerID uint64) (int64, error) {
	val, err := c.Client.Get(ctx, c.keyForFeedVersion(viewerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// InvalidateViewerFeed evicts the viewer's cached pages by bumping their
// version counter.
func (c *RedisCache) InvalidateViewerFeed(ctx context.Context, viewerID uint64) error {
	return c.Client.Incr(ctx, c.keyForFeedVersion(viewerID)).Err()
}

// RankEpoch returns the global ranking epoch (0 if unset).
func (c *RedisCache) RankEpoch(ctx context.Context) (int64, error) {
	val, err := c.Client.Get(ctx, rankEpochKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// InvalidateCandidate evicts every cached page that may embed the given
// profile's score by bumping the global epoch. Coarse on purpose: the page TTL
// is short, so per-candidate key tracking is not worth its bookkeeping.
func (c *RedisCache) InvalidateCandidate(ctx context.Context, profileID uint64) error {
	return c.Client.Incr(ctx, rankEpochKey).Err()
}

// KeyForFeedPage builds the cache key for one feed page.
func (c *RedisCache) KeyForFeedPage(viewerID uint64, version, epoch int64, filterHash string, afterID uint64) string {
	return fmt.Sprintf("feed:page:%d:v%d:e%d:%s:%d", viewerID, version, epoch, filterHash, afterID)
}

// GetFeedPage returns the cached JSON page, with a hit/miss flag.
func (c *RedisCache) GetFeedPage(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetFeedPage stores a JSON page under the given key with the feed TTL.
func (c *RedisCache) SetFeedPage(ctx context.Context, key, payload string, ttl time.Duration) error {
	return c.Client.Set(ctx, key, payload, ttl).Err()
}
