// Package cache is a Redis read-through cache for list and detail reads.
// Entries are grouped by key prefix so a mutation can drop every read it
// affects at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const namespace = "cache:"

// Prefixes shared by readers and the invalidating writers.
const (
	PrefixOperators          = "operators"
	PrefixAvailableOperators = "availableOperators"
	PrefixCars               = "cars"
)

func OperatorKey(id string) string {
	return "operator:" + id
}

func CarKey(id string) string {
	return "car:" + id
}

func OperatorHistoryKey(operatorID string) string {
	return "assignmentHistory:operator:" + operatorID
}

func CarHistoryKey(carID string) string {
	return "assignmentHistory:car:" + carID
}

// ListKey derives a stable key for a filtered list under prefix.
func ListKey(prefix string, filters any) string {
	data, err := json.Marshal(filters)
	if err != nil {
		return prefix
	}
	return prefix + ":" + string(data)
}

type Cache struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func New(rdb *redis.Client, ttl, opTimeout time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, opTimeout: opTimeout}
}

// Get decodes the entry at key into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, namespace+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	return c.rdb.Set(ctx, namespace+key, data, c.ttl).Err()
}

// Invalidate deletes every entry whose key starts with one of the prefixes.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	for _, prefix := range prefixes {
		iter := c.rdb.Scan(ctx, 0, escapePattern(namespace+prefix)+"*", 100).Iterator()

		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %q: %w", prefix, err)
		}

		if len(keys) == 0 {
			continue
		}
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete %q: %w", prefix, err)
		}
	}

	return nil
}

// Remember serves key from the cache, falling back to load on a miss. Cache
// failures are logged and never fail the read.
func Remember[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		slog.Warn("lecture du cache impossible", slog.String("key", key), slog.String("error", err.Error()))
	}
	if hit {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value); err != nil {
		slog.Warn("écriture du cache impossible", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}

func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
