package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/breatheasy/aqi-service/internal/models"
)

// RedisCache implements Cache backed by redis. Reports are stored as JSON
// with redis-side TTL expiry, so entries survive process restarts and can be
// shared across replicas.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache for the given address. password may be
// empty; db selects the redis logical database.
func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

// Get implements Cache.Get. redis.Nil maps to a plain miss.
func (c *RedisCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return models.Report{}, false, nil
	}
	if err != nil {
		return models.Report{}, false, fmt.Errorf("redis get: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return models.Report{}, false, fmt.Errorf("unmarshal cached report: %w", err)
	}
	return report, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks if redis is reachable. Used for health checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client. Call during shutdown.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
