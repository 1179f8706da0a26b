// Package cache keeps recently computed free-slot lists in redis. Entries are
// short-lived and dropped whenever a booking, rule or exception changes, so
// the cache never decides availability on its own.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "consultbook:slots:"

type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration) *SlotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotCache{rdb: rdb, ttl: ttl}
}

func dayKey(providerID string, day time.Time) string {
	return keyPrefix + providerID + ":" + day.Format(time.DateOnly)
}

func slotField(slotLength time.Duration) string {
	return strconv.Itoa(int(slotLength / time.Minute))
}

// Get returns the cached slots in UTC. ok is false on a miss.
func (c *SlotCache) Get(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.HGet(ctx, dayKey(providerID, day), slotField(slotLength)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var unix []int64
	if err := json.Unmarshal(raw, &unix); err != nil {
		return nil, false, err
	}
	out := make([]time.Time, len(unix))
	for i, s := range unix {
		out[i] = time.Unix(s, 0).UTC()
	}
	return out, true, nil
}

func (c *SlotCache) Put(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	unix := make([]int64, len(slots))
	for i, s := range slots {
		unix[i] = s.Unix()
	}
	raw, err := json.Marshal(unix)
	if err != nil {
		return err
	}

	key := dayKey(providerID, day)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, slotField(slotLength), raw)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateDay drops every slot length cached for the provider's date.
func (c *SlotCache) InvalidateDay(ctx context.Context, providerID string, day time.Time) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, dayKey(providerID, day)).Err()
}

// InvalidateProvider drops all cached dates for the provider.
func (c *SlotCache) InvalidateProvider(ctx context.Context, providerID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, keyPrefix+providerID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
