package tepilora

import (
	"context"
	"fmt"
	"time"
)

// CacheType selects the discovery-cache backend.
type CacheType string

const (
	// CacheTypeMemory caches in-process (default).
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS caches in a NATS JetStream key-value bucket,
	// shared across processes.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables caching.
	CacheTypeNone CacheType = "none"
)

// DefaultCacheTTL is how long discovery results stay fresh.
const DefaultCacheTTL = 15 * time.Minute

// CacheConfig selects and configures a cache backend.
type CacheConfig struct {
	// Type selects the backend; memory when empty.
	Type CacheType

	// TTL is the entry lifetime; DefaultCacheTTL when zero.
	TTL time.Duration

	// MaxSize bounds the memory backend; 128 when zero.
	MaxSize int

	// NATS configures the NATS backend; required for CacheTypeNATS.
	NATS *NATSKVConfig
}

// NewCacheFromConfig builds the configured cache backend.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		return NewMemoryCache(0), nil
	}

	switch config.Type {
	case CacheTypeMemory, "":
		return NewMemoryCache(config.MaxSize), nil
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, fmt.Errorf("%w: NATS cache requires NATS settings", ErrConfigRequired)
		}

		natsCfg := *config.NATS
		if natsCfg.TTL == 0 {
			natsCfg.TTL = config.TTL
		}

		if natsCfg.Bucket == "" {
			natsCfg.Bucket = "tepilora-discovery"
		}

		return NewNATSKVCache(&natsCfg)
	case CacheTypeNone:
		return NoOpCache{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache type %q", ErrConfigRequired, config.Type)
	}
}

// NoOpCache satisfies Cache without storing anything.
type NoOpCache struct{}

// Get always misses.
func (NoOpCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
}

// Set discards the entry.
func (NoOpCache) Set(_ context.Context, _ string, _ *CacheEntry) error { return nil }

// Delete is a no-op.
func (NoOpCache) Delete(_ context.Context, _ string) error { return nil }

// Clear is a no-op.
func (NoOpCache) Clear(_ context.Context) error { return nil }

// Has always reports false.
func (NoOpCache) Has(_ context.Context, _ string) bool { return false }
