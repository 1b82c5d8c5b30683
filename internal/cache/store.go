// Package cache provides the shared content cache. Entries are stored with a
// TTL and a set of tags; invalidating a tag drops every entry carrying it.
package cache

import (
	"context"
	"time"
)

// Store is a tag-aware byte cache shared by all live requests.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	// InvalidateTags removes every entry carrying any of tags and returns how
	// many entries were removed.
	InvalidateTags(ctx context.Context, tags ...string) (int, error)
	// Flush drops everything.
	Flush(ctx context.Context) error
	Close() error
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Entries   int     `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}
