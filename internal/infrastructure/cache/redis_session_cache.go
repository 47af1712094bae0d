package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-bridge/internal/domain"
)

// RedisSessionCache stores session lookups in Redis as JSON strings.
// Implements domain.SessionCache.
type RedisSessionCache struct {
	client  redis.UniversalClient
	keys    Keys
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewRedisClient creates a Redis client from a URL and verifies connectivity.
func NewRedisClient(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewRedisSessionCache creates a Redis-backed session cache. timeout bounds
// every command; zero disables the bound.
func NewRedisSessionCache(client redis.UniversalClient, keys Keys, ttl, timeout time.Duration) *RedisSessionCache {
	return &RedisSessionCache{
		client:  client,
		keys:    keys,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
	}
}

// Get retrieves a cached session lookup by token.
func (c *RedisSessionCache) Get(ctx context.Context, token string) (*domain.SessionView, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.client.Get(ctx, c.keys.Token(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}

	var view domain.SessionView
	if err := json.Unmarshal(raw, &view); err != nil {
		// Undecodable entries are treated as absent and overwritten on the next fill.
		return nil, domain.ErrCacheMiss
	}
	return &view, nil
}

// Set writes the lookup under both key shapes in a single transaction.
func (c *RedisSessionCache) Set(ctx context.Context, view domain.SessionView) error {
	ttl := entryTTL(c.ttl, c.now(), view.Session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal session view: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range c.keys.both(view.Session.Token, view.Session.ID) {
			pipe.Set(ctx, key, payload, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes both key shapes with one DEL.
func (c *RedisSessionCache) Delete(ctx context.Context, token, sessionID string) error {
	keys := c.keys.both(token, sessionID)
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisSessionCache) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisSessionCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
