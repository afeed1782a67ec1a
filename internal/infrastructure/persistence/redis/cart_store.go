package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

// CartStore keeps each session's cart in a redis set. SADD's return value
// doubles as the duplicate check, and the TTL refreshed on every write
// expires carts together with their sessions.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartStore(conn *Connection, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CartStore{
		client: monitoring.InstrumentRedisClient(conn.GetClient()),
		ttl:    ttl,
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func (s *CartStore) Items(ctx context.Context, sessionID string) ([]string, error) {
	return s.client.SMembers(ctx, cartKey(sessionID)).Result()
}

func (s *CartStore) Add(ctx context.Context, sessionID, listingID string) (bool, error) {
	key := cartKey(sessionID)

	pipe := s.client.Pipeline()
	added := pipe.SAdd(ctx, key, listingID)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return added.Val() > 0, nil
}

func (s *CartStore) Remove(ctx context.Context, sessionID string, listingIDs ...string) error {
	if len(listingIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(listingIDs))
	for i, id := range listingIDs {
		members[i] = id
	}

	return s.client.SRem(ctx, cartKey(sessionID), members...).Err()
}

func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, cartKey(sessionID)).Err()
}
