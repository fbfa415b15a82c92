package redis

import (
	"context"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const savedKeyPrefix = "jobboard:saved:"

// SavedCache stores each user's saved job IDs as a Redis SET that expires
// after ttl without writes.
type SavedCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewSavedCache(rdb *goredis.Client, ttl time.Duration) *SavedCache {
	return &SavedCache{rdb: rdb, ttl: ttl}
}

func savedKey(userID string) string { return savedKeyPrefix + userID }

func (c *SavedCache) Load(ctx context.Context, userID string) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, savedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load saved cache: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Store replaces the user's set atomically.
func (c *SavedCache) Store(ctx context.Context, userID string, jobIDs []string) error {
	key := savedKey(userID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(jobIDs) == 0 {
			return nil
		}
		members := make([]any, 0, len(jobIDs))
		for _, id := range jobIDs {
			members = append(members, id)
		}
		pipe.SAdd(ctx, key, members...)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store saved cache: %w", err)
	}
	return nil
}
