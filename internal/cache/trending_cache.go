package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suteetoe/storefront/internal/model"
)

// TrendingCache keeps short-lived copies of trending listings. Click counts
// themselves always live in the database; the cache only absorbs repeated reads.
type TrendingCache interface {
	Get(ctx context.Context, limit int) ([]model.Product, bool, error)
	Set(ctx context.Context, limit int, products []model.Product) error
	// Invalidate drops every cached limit.
	Invalidate(ctx context.Context) error
}

// NopTrendingCache never hits.
type NopTrendingCache struct{}

func (NopTrendingCache) Get(context.Context, int) ([]model.Product, bool, error) {
	return nil, false, nil
}

func (NopTrendingCache) Set(context.Context, int, []model.Product) error {
	return nil
}

func (NopTrendingCache) Invalidate(context.Context) error {
	return nil
}

type RedisTrendingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTrendingCache(client *redis.Client, ttl time.Duration) *RedisTrendingCache {
	return &RedisTrendingCache{client: client, ttl: ttl}
}

const trendingKeyPrefix = "products:trending:"

func trendingKey(limit int) string {
	return fmt.Sprintf("%s%d", trendingKeyPrefix, limit)
}

func (c *RedisTrendingCache) Get(ctx context.Context, limit int) ([]model.Product, bool, error) {
	raw, err := c.client.Get(ctx, trendingKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("decode trending cache: %w", err)
	}
	return products, true, nil
}

func (c *RedisTrendingCache) Set(ctx context.Context, limit int, products []model.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, trendingKey(limit), raw, c.ttl).Err()
}

// Invalidate deletes every trending key found by SCAN.
func (c *RedisTrendingCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, trendingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan trending cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
