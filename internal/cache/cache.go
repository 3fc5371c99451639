// Package cache stores validated generation results so re-running a
// document only dispatches chunks that have no cached records.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Cache is a string key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key. A zero ttl uses the cache default.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry written by this cache.
	Clear(ctx context.Context) error
}

// Backend types accepted by New.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeNone   = "none"
)

// Config selects and configures a cache backend.
type Config struct {
	// Type is "memory", "redis" or "none".
	Type string

	// Redis connection (redis only).
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KeyPrefix namespaces keys in a shared redis database.
	KeyPrefix string

	// DefaultTTL applies when Set is called with a zero ttl.
	DefaultTTL time.Duration

	// CleanupInterval is how often expired entries are purged (memory only).
	CleanupInterval time.Duration
}

// DefaultConfig returns an in-memory cache configuration.
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		KeyPrefix:       "qagen",
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// New creates the cache selected by cfg.Type. It returns (nil, nil) for
// "none".
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryCache(cfg), nil
	case TypeRedis:
		c, err := NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// Key builds a fixed-length key from parts. Parts are length-prefixed
// before hashing so ("ab", "c") and ("a", "bc") differ.
func Key(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if prefix == "" {
		return sum
	}
	return strings.TrimSuffix(prefix, ":") + ":" + sum
}
