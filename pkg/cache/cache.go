// Package cache provides the injectable cache abstraction used by the
// resolvers. Entries expire purely by TTL; there is no write-through
// invalidation on administrative changes, so callers tolerate eventual
// consistency up to the configured TTL.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys with a TTL. Writes are
// idempotent last-writer-wins; collisions only cause redundant recomputation.
type Cache interface {
	// Get returns the payload for key, or false when absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores the payload under key for ttl. A non-positive ttl falls
	// back to the implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Invalidate drops the entry for key, if any.
	Invalidate(ctx context.Context, key string)
}

// NoOp is a Cache that stores nothing. Useful in tests and when caching is
// disabled by configuration.
type NoOp struct{}

func (NoOp) Get(context.Context, string) ([]byte, bool)          { return nil, false }
func (NoOp) Set(context.Context, string, []byte, time.Duration)  {}
func (NoOp) Invalidate(context.Context, string)                  {}
