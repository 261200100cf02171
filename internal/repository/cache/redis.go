package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reviewhub/catalog-reviews/internal/domain"
)

// RedisCache caches product review stats and product-scoped review list pages
type RedisCache struct {
	client         *redis.Client
	statsTTL       time.Duration
	reviewsListTTL time.Duration
}

// cachedPage bundles a list page with the total count it was computed against
type cachedPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, statsTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		statsTTL:       statsTTL,
		reviewsListTTL: reviewsListTTL,
	}
}

func (c *RedisCache) statsKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:stats", productID.String())
}

func (c *RedisCache) reviewsListKey(productID uuid.UUID, page, limit int) string {
	return fmt.Sprintf("product:%s:reviews:page:%d:limit:%d", productID.String(), page, limit)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetProductStats retrieves cached review stats for a product
func (c *RedisCache) GetProductStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	val, err := c.client.Get(ctx, c.statsKey(productID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var stats domain.ReviewStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

// SetProductStats stores review stats in cache
func (c *RedisCache) SetProductStats(ctx context.Context, productID uuid.UUID, stats *domain.ReviewStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.statsKey(productID), data, c.statsTTL).Err()
}

// GetReviewsList retrieves a cached review list page for a product
func (c *RedisCache) GetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int) ([]*domain.Review, int, error) {
	val, err := c.client.Get(ctx, c.reviewsListKey(productID, page, limit)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}

	var cached cachedPage
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, 0, err
	}

	return cached.Reviews, cached.Total, nil
}

// SetReviewsList stores a review list page in cache and tracks the key in a
// SET so invalidation can find every cached page for the product
func (c *RedisCache) SetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int, reviews []*domain.Review, total int) error {
	key := c.reviewsListKey(productID, page, limit)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(cachedPage{Reviews: reviews, Total: total})
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProduct removes the stats entry and every cached list page for
// a product
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	if err := c.client.Del(ctx, c.statsKey(productID)).Err(); err != nil && err != redis.Nil {
		return err
	}

	trackingKey := c.productCacheKeysSet(productID)
	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}
