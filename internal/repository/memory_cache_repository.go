package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is a process-local cache store. Values are kept JSON
// encoded so callers never share mutable state with the cache.
type MemoryCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository constructs an empty in-process cache store.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get decodes the live value stored under key into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		if current, ok := r.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key. A non-positive TTL keeps it until evicted.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

// DeleteByPattern removes keys matching a glob pattern using Redis-style '*' wildcards.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if matchCachePattern(pattern, key) {
			delete(r.entries, key)
		}
	}
	return nil
}

// Close drops every entry.
func (r *MemoryCacheRepository) Close() error {
	r.mu.Lock()
	r.entries = make(map[string]memoryEntry)
	r.mu.Unlock()
	return nil
}

// matchCachePattern treats '*' as matching any run of characters, separators included.
func matchCachePattern(pattern, key string) bool {
	if ok, _ := path.Match(pattern, key); ok {
		return true
	}
	// path.Match stops '*' at '/', which cache keys may contain.
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		if prefix := pattern[:n-1]; !hasMeta(prefix) {
			return strings.HasPrefix(key, prefix)
		}
	}
	return false
}

func hasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
