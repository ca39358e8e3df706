package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

// Cache namespaces. Every key starts with its namespace followed by ':'.
const (
	CacheNamespaceEnrollments = "enrollments"
	CacheNamespaceProgress    = "progress"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates read-through caching, namespace invalidation and related metrics.
//
// Each namespace carries an epoch bumped on invalidation. A load only writes
// its result back when the epoch it started under is still current, so a
// read racing a write in this process cannot re-populate a stale entry.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	group  singleflight.Group
	mu     sync.RWMutex
	epochs map[string]uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:       repo,
		metrics:    metrics,
		defaultTTL: defaultTTL,
		logger:     logger,
		enabled:    enabled,
		epochs:     make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate evicts every entry of a namespace.
func (s *CacheService) Invalidate(ctx context.Context, namespace string) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	s.epochs[namespace]++
	s.mu.Unlock()

	s.metrics.RecordCacheInvalidation(namespace)
	if err := s.repo.DeleteByPattern(ctx, namespace+":*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("namespace", namespace), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) epoch(namespace string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epochs[namespace]
}

// storeIfCurrent writes value back unless the namespace was invalidated
// after epoch was read. The read lock holds off invalidations until the
// write lands, so a concurrent eviction always removes it.
func (s *CacheService) storeIfCurrent(ctx context.Context, namespace string, epoch uint64, key string, value interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epochs[namespace] != epoch {
		return false
	}
	_ = s.Set(ctx, key, value, 0)
	return true
}

func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Remember serves key from cache or runs load and caches its result.
// Concurrent misses on the same key share one load. Cache failures never
// fail the read.
func Remember[T any](ctx context.Context, cache *CacheService, key string, load func(context.Context) (T, error)) (T, error) {
	if !cache.Enabled() {
		return load(ctx)
	}

	var cached T
	if hit, _ := cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	namespace := namespaceOf(key)
	epoch := cache.epoch(namespace)
	flight := fmt.Sprintf("%s#%d", key, epoch)
	value, err, _ := cache.group.Do(flight, func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if !cache.storeIfCurrent(ctx, namespace, epoch, key, loaded) {
			cache.logger.Debug("cache write-back skipped after invalidation", zap.String("key", key))
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
