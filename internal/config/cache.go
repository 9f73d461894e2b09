package config

import "time"

// CacheConfig defines settings for the queue response cache.  When
// Enabled is false or no Redis client is configured, caching is
// disabled.  The TTL is deliberately short: the order queue changes
// every time a courier claims, and a stale listing only costs the
// claimer a "skipped" entry in the claim response.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 2*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
