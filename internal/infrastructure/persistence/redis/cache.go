package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resexchange/marketplace/internal/infrastructure/bloom"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type Cache struct {
	client      *redis.Client
	bloomFilter *bloom.RedisBloomFilter
	logger      *logger.Logger
}

func NewCache(conn *Connection, log *logger.Logger) *Cache {
	client := monitoring.InstrumentRedisClient(conn.GetClient())

	m, k := bloom.GetOptimalParameters(100000, 0.01)
	bloomFilter := bloom.NewRedisBloomFilter(client, "bloom:sold_listings", m, k)

	return &Cache{
		client:      client,
		bloomFilter: bloomFilter,
		logger:      log,
	}
}

func (c *Cache) AddListingToSoldFilter(ctx context.Context, listingID string) error {
	return c.bloomFilter.Add(ctx, listingID)
}

func (c *Cache) ListingInSoldFilter(ctx context.Context, listingID string) (bool, error) {
	return c.bloomFilter.Contains(ctx, listingID)
}

func (c *Cache) GetSessionCurrency(ctx context.Context, sessionID string) (string, error) {
	key := fmt.Sprintf("session:%s:currency", sessionID)
	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return result, nil
}

func (c *Cache) SetSessionCurrency(ctx context.Context, sessionID, currency string, expiration time.Duration) error {
	key := fmt.Sprintf("session:%s:currency", sessionID)
	return c.client.Set(ctx, key, currency, expiration).Err()
}

// AcquireLock takes a best-effort distributed lock via SET NX. It reports
// false without error when another holder has the lock.
func (c *Cache) AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	result, err := c.client.SetNX(ctx, lockKey, "1", expiration).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

func (c *Cache) ReleaseLock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("lock:%s", key)
	return c.client.Del(ctx, lockKey).Err()
}
