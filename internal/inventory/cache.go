package inventory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a Store with a Redis read-through cache of the remaining
// quantity. Polling-heavy availability reads hit Redis; the backing store is
// only consulted on a miss. Reservations refresh the cache off the request
// path.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(ticketStockID string) string {
	return fmt.Sprintf("ticket-stock:%s:available", ticketStockID)
}

func (c *CachedStore) Reserve(ctx context.Context, ticketStockID string, quantity int) (int, error) {
	remaining, err := c.inner.Reserve(ctx, ticketStockID, quantity)
	if err != nil {
		return remaining, err
	}

	go c.storeRemaining(ticketStockID, remaining)
	return remaining, nil
}

func (c *CachedStore) Remaining(ctx context.Context, ticketStockID string) (int, error) {
	cached, err := c.rdb.Get(ctx, cacheKey(ticketStockID)).Result()
	if err == nil {
		if remaining, convErr := strconv.Atoi(cached); convErr == nil {
			return remaining, nil
		}
	} else if err != redis.Nil {
		log.Printf("Redis cache read failed for %s: %v", ticketStockID, err)
	}

	remaining, err := c.inner.Remaining(ctx, ticketStockID)
	if err != nil {
		return 0, err
	}

	go c.storeRemaining(ticketStockID, remaining)
	return remaining, nil
}

func (c *CachedStore) SetStock(ctx context.Context, ticketStockID string, totalQuantity int) error {
	if err := c.inner.SetStock(ctx, ticketStockID, totalQuantity); err != nil {
		return err
	}
	go c.storeRemaining(ticketStockID, totalQuantity)
	return nil
}

func (c *CachedStore) storeRemaining(ticketStockID string, remaining int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.rdb.Set(ctx, cacheKey(ticketStockID), remaining, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache remaining tickets for %s: %v", ticketStockID, err)
	}
}
