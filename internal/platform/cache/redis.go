package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// RedisStore implements Store on top of a Redis backend.
//
// All methods fail open: backend errors are logged at warn level and reported
// as misses or failed writes. Construction does not require Redis to be up.
type RedisStore struct {
	client *redis.Client
	logger *observability.Logger
}

// RedisOptions holds Redis connection settings.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// NewRedisStore creates a Redis-backed store. The connection pool is lazy;
// an unreachable backend degrades every operation to a miss instead of
// failing construction.
func NewRedisStore(opts RedisOptions, logger *observability.Logger) *RedisStore {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	return &RedisStore{
		client: client,
		logger: logger.Component("redis_store"),
	}
}

// Get retrieves a payload; any backend error is a miss.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.LogWarn(ctx, "cache get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set writes a payload with expiry; a single atomic SET key value EX ttl.
func (r *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) bool {
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		r.logger.LogWarn(ctx, "cache set failed", "key", key, "error", err)
		return false
	}
	return true
}

// SetIfAbsent writes only when the key is not already present (SET NX EX).
func (r *RedisStore) SetIfAbsent(ctx context.Context, key string, payload []byte, ttl time.Duration) bool {
	created, err := r.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		r.logger.LogWarn(ctx, "cache setnx failed", "key", key, "error", err)
		return false
	}
	return created
}

// Delete removes a single key.
func (r *RedisStore) Delete(ctx context.Context, key string) bool {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.logger.LogWarn(ctx, "cache delete failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// DeletePattern removes keys matching a glob using a cursor SCAN, never the
// blocking KEYS command.
func (r *RedisStore) DeletePattern(ctx context.Context, pattern string) int {
	deleted := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.LogWarn(ctx, "cache pattern delete failed for key", "key", iter.Val(), "error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		r.logger.LogWarn(ctx, "cache pattern scan failed", "pattern", pattern, "error", err)
	}
	return deleted
}

// TTL returns the remaining expiry for key, or NoTTL.
func (r *RedisStore) TTL(ctx context.Context, key string) time.Duration {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil || d < 0 {
		return NoTTL
	}
	return d
}

// Ping checks backend reachability.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
