package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SlotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSlotCache(rdb, time.Minute), mr
}

func TestSlotCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	slots := []time.Time{day.Add(9 * time.Hour), day.Add(10 * time.Hour)}

	_, ok, err := c.Get(ctx, "p1", day, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "p1", day, time.Hour, slots))

	got, ok, err := c.Get(ctx, "p1", day, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(slots[0]))
	assert.True(t, got[1].Equal(slots[1]))

	_, ok, err = c.Get(ctx, "p1", day, 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "other slot lengths are cached separately")
}

func TestSlotCacheEmptyListIsAHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, "p1", day, time.Hour, nil))
	got, ok, err := c.Get(ctx, "p1", day, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSlotCacheExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, "p1", day, time.Hour, []time.Time{day}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "p1", day, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlotCacheInvalidation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	require.NoError(t, c.Put(ctx, "p1", monday, time.Hour, []time.Time{monday}))
	require.NoError(t, c.Put(ctx, "p1", tuesday, time.Hour, []time.Time{tuesday}))
	require.NoError(t, c.Put(ctx, "p2", monday, time.Hour, []time.Time{monday}))

	require.NoError(t, c.InvalidateDay(ctx, "p1", monday))
	_, ok, _ := c.Get(ctx, "p1", monday, time.Hour)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "p1", tuesday, time.Hour)
	assert.True(t, ok)

	require.NoError(t, c.InvalidateProvider(ctx, "p1"))
	_, ok, _ = c.Get(ctx, "p1", tuesday, time.Hour)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "p2", monday, time.Hour)
	assert.True(t, ok, "other providers keep their entries")
}

func TestNilSlotCacheIsNoop(t *testing.T) {
	var c *SlotCache
	ctx := context.Background()
	day := time.Now()

	_, ok, err := c.Get(ctx, "p1", day, time.Hour)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Put(ctx, "p1", day, time.Hour, nil))
	assert.NoError(t, c.InvalidateDay(ctx, "p1", day))
	assert.NoError(t, c.InvalidateProvider(ctx, "p1"))
}
