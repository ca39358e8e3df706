package server

import (
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/internal/repository"
	"github.com/noah-isme/course-progress-api/internal/service"
	"github.com/noah-isme/course-progress-api/pkg/cache"
	"github.com/noah-isme/course-progress-api/pkg/config"
)

// NewCache builds the read-through cache on the configured store. The
// returned close function releases the store.
func NewCache(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func() error, error) {
	if !cfg.Cache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), func() error { return nil }, nil
	}
	if cfg.Cache.Driver == config.CacheDriverRedis {
		client, err := cache.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewRedisCacheRepository(client, logr)
		logr.Info("cache enabled", zap.String("driver", config.CacheDriverRedis), zap.Duration("ttl", cfg.Cache.TTL))
		return service.NewCacheService(store, metrics, cfg.Cache.TTL, logr, true), store.Close, nil
	}
	store := repository.NewMemoryCacheRepository()
	logr.Info("cache enabled", zap.String("driver", config.CacheDriverMemory), zap.Duration("ttl", cfg.Cache.TTL))
	return service.NewCacheService(store, metrics, cfg.Cache.TTL, logr, true), store.Close, nil
}
