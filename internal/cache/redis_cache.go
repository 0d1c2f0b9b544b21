package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phostann/ybook/internal/config"
)

// RedisPresenceCache implements PresenceCache on Redis keys with TTL.
type RedisPresenceCache struct {
	client *redis.Client
	prefix string
}

// NewRedisPresenceCache connects to Redis and returns a presence cache.
func NewRedisPresenceCache(cfg config.RedisConfig) (*RedisPresenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPresenceCache{
		client: client,
		prefix: cfg.PresencePrefix,
	}, nil
}

func (c *RedisPresenceCache) key(userID int64) string {
	return fmt.Sprintf("%s:online:%d", c.prefix, userID)
}

func (c *RedisPresenceCache) SetOnline(ctx context.Context, userID int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(userID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set online flag: %w", err)
	}
	return nil
}

func (c *RedisPresenceCache) SetOffline(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear online flag: %w", err)
	}
	return nil
}

func (c *RedisPresenceCache) Refresh(ctx context.Context, userID int64, ttl time.Duration) error {
	if err := c.client.Expire(ctx, c.key(userID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh online flag: %w", err)
	}
	return nil
}

func (c *RedisPresenceCache) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check online flag: %w", err)
	}
	return n > 0, nil
}

func (c *RedisPresenceCache) Close() error {
	return c.client.Close()
}
