package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/course-progress-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// Open returns a Redis client when the cache is enabled and backed by Redis.
// It returns nil, nil for the process-local driver.
func Open(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Cache.Enabled || cfg.Cache.Driver != config.CacheDriverRedis {
		return nil, nil
	}
	return NewRedis(cfg.Redis)
}

// NewRedis returns a configured Redis client after a successful ping.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return client, nil
}
