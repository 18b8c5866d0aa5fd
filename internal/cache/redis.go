// Package cache holds the advisory slot-listing cache. Nothing here is authoritative: the
// ledger re-checks every write, so a stale or missing entry only costs a recomputation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a listing can get if an invalidation is lost.
const DefaultTTL = 30 * time.Second

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// SlotCache stores pre-lead-time slot listings per coach, date and duration. Each coach has
// a version counter embedded in the keys; bumping it orphans every listing of the coach,
// which then expire on their TTL.
type SlotCache struct {
	client redisCmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewSlotCache(client redisCmdable, ttl time.Duration, logger *zap.Logger) *SlotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient connects and pings, so a misconfigured address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func versionKey(coachID int64) string {
	return fmt.Sprintf("slots:%d:ver", coachID)
}

func listingKey(coachID int64, version string, date time.Time, durationMinutes int) string {
	return fmt.Sprintf("slots:%d:v%s:%s:%d", coachID, version, date.UTC().Format(time.DateOnly), durationMinutes)
}

func (c *SlotCache) version(ctx context.Context, coachID int64) (string, error) {
	v, err := c.client.Get(ctx, versionKey(coachID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (c *SlotCache) Get(ctx context.Context, coachID int64, date time.Time, durationMinutes int) ([]time.Time, bool) {
	version, err := c.version(ctx, coachID)
	if err != nil {
		c.logger.Warn("Slot cache version lookup failed", zap.Int64("coach_id", coachID), zap.Error(err))
		return nil, false
	}

	raw, err := c.client.Get(ctx, listingKey(coachID, version, date, durationMinutes)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Slot cache read failed", zap.Int64("coach_id", coachID), zap.Error(err))
		return nil, false
	}

	var starts []time.Time
	if err := json.Unmarshal(raw, &starts); err != nil {
		c.logger.Warn("Slot cache entry corrupt", zap.Int64("coach_id", coachID), zap.Error(err))
		return nil, false
	}
	return starts, true
}

func (c *SlotCache) Set(ctx context.Context, coachID int64, date time.Time, durationMinutes int, starts []time.Time) {
	version, err := c.version(ctx, coachID)
	if err != nil {
		c.logger.Warn("Slot cache version lookup failed", zap.Int64("coach_id", coachID), zap.Error(err))
		return
	}

	if starts == nil {
		starts = []time.Time{}
	}
	raw, err := json.Marshal(starts)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, listingKey(coachID, version, date, durationMinutes), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Slot cache write failed", zap.Int64("coach_id", coachID), zap.Error(err))
	}
}

func (c *SlotCache) Invalidate(ctx context.Context, coachID int64) {
	if err := c.client.Incr(ctx, versionKey(coachID)).Err(); err != nil {
		c.logger.Error("Slot cache invalidation failed",
			zap.Int64("coach_id", coachID),
			zap.Duration("stale_for_at_most", c.ttl),
			zap.Error(err))
	}
}
