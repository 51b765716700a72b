// Package cache stores JSON snapshots of read-heavy, rarely changing lists.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Nop never stores anything, so every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error                { return ErrMiss }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error               { return nil }

type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects to addr. A failed ping is logged, not fatal; calls will
// keep failing until redis becomes reachable and callers fall back to the database.
func NewRedis(ctx context.Context, addr, prefix string) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis ping failed", "addr", addr, "error", err)
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string, dst any) error {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return r.rdb.Set(ctx, r.key(key), raw, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.rdb.Del(ctx, full...).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }

// Load returns the cached value for key, or calls fill and caches its result.
// Cache errors are logged and never fail the call.
func Load[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fill func(context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	value, err := fill(ctx)
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Invalidate deletes keys, logging failures.
func Invalidate(ctx context.Context, c Cache, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}
