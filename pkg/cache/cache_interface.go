package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache used for availability snapshots and
// background job summaries.
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found=false on a miss, dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value; ttl 0 keeps it until overwritten or deleted
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
