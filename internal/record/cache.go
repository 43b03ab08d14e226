package record

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheDepth = 20
	cacheTTL   = 7 * 24 * time.Hour
)

// Cache keeps the freshest finished games per room in Redis so the recent
// list survives process restarts without touching the database on every read.
type Cache struct {
	rdb *redis.Client
}

func NewCache(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Push prepends the result to the room's list, keeping the newest cacheDepth
// entries.
func (c *Cache) Push(ctx context.Context, res *Result) error {
	if c == nil || c.rdb == nil || res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := roomKey(res.Room)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, cacheDepth-1)
	pipe.Expire(ctx, key, cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push result: %w", err)
	}
	return nil
}

// Recent returns up to limit results for the room, newest first.
func (c *Cache) Recent(ctx context.Context, room string, limit int) ([]*Result, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	if limit <= 0 || limit > cacheDepth {
		limit = cacheDepth
	}
	raws, err := c.rdb.LRange(ctx, roomKey(room), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent: %w", err)
	}
	results := make([]*Result, 0, len(raws))
	for _, raw := range raws {
		var res Result
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, &res)
	}
	return results, nil
}

func roomKey(room string) string { return "chess:recent:" + room }
