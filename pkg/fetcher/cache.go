package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "farewatch:quote:"

// Cached is a read-through Redis cache in front of another fetcher.
// Unavailable results are never cached. Redis errors fall back to the wrapped fetcher.
type Cached struct {
	next   PriceFetcher
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with a Redis cache holding quotes for ttl.
func NewCached(next PriceFetcher, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient builds the client used by Cached.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *Cached) Name() string { return c.next.Name() + "+cache" }

func (c *Cached) Fetch(ctx context.Context, origin, destination model.AirportCode, date time.Time) (*model.Quote, error) {
	key := cacheKey(origin, destination, date)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var q model.Quote
		if jsonErr := json.Unmarshal(raw, &q); jsonErr == nil {
			return &q, nil
		}
		c.logger.Warn("discarding corrupt cached quote", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("quote cache read failed", "key", key, "error", err)
	}

	quote, err := c.next.Fetch(ctx, origin, destination, date)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(quote); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("quote cache write failed", "key", key, "error", err)
		}
	}
	return quote, nil
}

// Close releases the Redis connection pool.
func (c *Cached) Close() error {
	return c.client.Close()
}

func cacheKey(origin, destination model.AirportCode, date time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", cacheKeyPrefix, origin, destination, model.FormatDate(date))
}
