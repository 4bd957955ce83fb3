package cache

import (
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/logger"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// Initialize builds the configured cache. A redis backend that cannot be
// reached falls back to the in-memory cache.
func Initialize(cfg *config.Configuration, log *logger.Logger) Cache {
	if !cfg.Cache.Enabled {
		log.Infow("cache disabled")
		return NoopCache{}
	}

	if CacheType(cfg.Cache.Type) == CacheTypeRedis {
		rc, err := NewRedisCache(cfg.Cache.Redis, cfg.Cache.TTL, log)
		if err == nil {
			log.Infow("cache initialized", "type", CacheTypeRedis)
			return rc
		}
		log.Warnw("redis cache unavailable, falling back to in-memory", "error", err)
	}

	log.Infow("cache initialized", "type", CacheTypeInMemory, "ttl", cfg.Cache.TTL)
	return NewInMemoryCache(cfg.Cache.TTL)
}
