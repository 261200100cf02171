package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewhub/catalog-reviews/internal/config"
)

// NewRedisClient opens a Redis connection and verifies it with a ping.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// WaitForRedis retries the connection until it succeeds or attempts run out.
func WaitForRedis(cfg *config.Config, attempts int, delay time.Duration) (*redis.Client, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		client, err := NewRedisClient(cfg)
		if err == nil {
			return client, nil
		}
		lastErr = err

		if i < attempts-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("redis not reachable after %d attempts: %w", attempts, lastErr)
}
