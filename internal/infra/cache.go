package infra

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StockCache is a short-TTL read cache for on-hand quantities, sitting in
// front of the ledger. All calls go through the circuit breaker: when Redis
// misbehaves the cache degrades to a no-op and readers hit Postgres directly.
type StockCache struct {
	rdb *redis.Client
	cb  *CircuitBreaker
	ttl time.Duration
}

func NewStockCache(rdb *redis.Client, cb *CircuitBreaker) *StockCache {
	return &StockCache{rdb: rdb, cb: cb, ttl: 30 * time.Second}
}

func stockKey(productID uuid.UUID) string { return "soh:" + productID.String() }

// GetQty returns the cached quantity and whether the cache answered.
func (c *StockCache) GetQty(ctx context.Context, productID uuid.UUID) (int, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	var qty int
	var hit bool
	err := c.cb.Execute(func() error {
		val, err := c.rdb.Get(ctx, stockKey(productID)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		qty, hit = n, true
		return nil
	})
	if err != nil && err != ErrCircuitOpen {
		log.Warn().Err(err).Msg("stock cache read failed")
	}
	return qty, hit
}

func (c *StockCache) SetQty(ctx context.Context, productID uuid.UUID, qty int) {
	if c == nil || c.rdb == nil {
		return
	}
	err := c.cb.Execute(func() error {
		return c.rdb.Set(ctx, stockKey(productID), strconv.Itoa(qty), c.ttl).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Warn().Err(err).Msg("stock cache write failed")
	}
}

// Invalidate drops the cached quantity after any stock mutation.
func (c *StockCache) Invalidate(ctx context.Context, productIDs ...uuid.UUID) {
	if c == nil || c.rdb == nil || len(productIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, stockKey(id))
	}
	err := c.cb.Execute(func() error {
		return c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Warn().Err(err).Msg("stock cache invalidation failed")
	}
}
