package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRedis is a map-backed stand-in for the three commands the cache uses.
type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

var day = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func TestSlotCacheRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewSlotCache(rdb, 0, zap.NewNop())

	_, ok := c.Get(ctx, 1, day, 30)
	assert.False(t, ok)

	starts := []time.Time{day.Add(9 * time.Hour), day.Add(9*time.Hour + 30*time.Minute)}
	c.Set(ctx, 1, day, 30, starts)

	got, ok := c.Get(ctx, 1, day, 30)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(starts[0]))
	assert.Equal(t, DefaultTTL, rdb.ttls[listingKey(1, "0", day, 30)])

	// Other durations and coaches are separate entries.
	_, ok = c.Get(ctx, 1, day, 60)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 2, day, 30)
	assert.False(t, ok)

	c.Invalidate(ctx, 1)
	_, ok = c.Get(ctx, 1, day, 30)
	assert.False(t, ok)
}

func TestSlotCacheEmptyListingIsAHit(t *testing.T) {
	ctx := context.Background()
	c := NewSlotCache(newFakeRedis(), time.Minute, zap.NewNop())

	c.Set(ctx, 1, day, 30, nil)
	got, ok := c.Get(ctx, 1, day, 30)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSlotCacheDegradesOnErrors(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	c := NewSlotCache(rdb, time.Minute, zap.NewNop())

	c.Set(ctx, 1, day, 30, []time.Time{day})
	_, ok := c.Get(ctx, 1, day, 30)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
}

func TestListingKey(t *testing.T) {
	local := time.Date(2026, time.October, 19, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "slots:7:v3:2026-10-18:45", listingKey(7, "3", local, 45))
	assert.Equal(t, "slots:7:ver", versionKey(7))
}
