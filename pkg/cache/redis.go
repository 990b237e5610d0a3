package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Cache backed by a shared Redis instance, for deployments with
// more than one replica of the service.
type Redis struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedis creates a Redis cache and verifies the connection.
func NewRedis(addr, password string, db int, defaultTTL time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		client:     client,
		prefix:     "safetypulse:",
		defaultTTL: defaultTTL,
	}, nil
}

// NewRedisWithClient wraps an existing client; used by tests with miniredis.
func NewRedisWithClient(client *redis.Client, defaultTTL time.Duration) *Redis {
	return &Redis{client: client, prefix: "safetypulse:", defaultTTL: defaultTTL}
}

// Get returns the payload for key. Transport errors degrade to a miss; the
// cache is an optimization, never a source of truth.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores the payload under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	r.client.Set(ctx, r.prefix+key, value, ttl)
}

// Invalidate drops the entry for key.
func (r *Redis) Invalidate(ctx context.Context, key string) {
	r.client.Del(ctx, r.prefix+key)
}

// Client exposes the underlying connection for health checks.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
