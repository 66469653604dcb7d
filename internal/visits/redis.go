package visits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyTotal      = "visits:total"
	sessionPrefix = "visits:session:"
	sessionTTL    = 24 * time.Hour
)

// RedisCounter counts each session once per sessionTTL.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to redisURL and checks the connection.
func NewRedisCounter(ctx context.Context, redisURL string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCounter{client: client}, nil
}

func (c *RedisCounter) Hit(ctx context.Context, sessionID string) error {
	fresh, err := c.client.SetNX(ctx, sessionPrefix+sessionID, 1, sessionTTL).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !fresh {
		return nil
	}
	if err := c.client.Incr(ctx, keyTotal).Err(); err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	return nil
}

func (c *RedisCounter) Total(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, keyTotal).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}
