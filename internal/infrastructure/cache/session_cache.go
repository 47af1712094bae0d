package cache

import (
	"context"
	"sync"
	"time"

	"auth-bridge/internal/domain"
)

// cacheEntry represents a cached session lookup.
type cacheEntry struct {
	view      domain.SessionView
	expiresAt time.Time
}

// SessionCache provides thread-safe in-memory session caching with TTL.
// It is used when no Redis instance is configured.
// Implements domain.SessionCache.
type SessionCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	keys    Keys
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionCache creates a new session cache with the specified TTL.
func NewSessionCache(keys Keys, ttl time.Duration) *SessionCache {
	c := &SessionCache{
		entries: make(map[string]*cacheEntry),
		keys:    keys,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves a cached session lookup by token.
func (c *SessionCache) Get(_ context.Context, token string) (*domain.SessionView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[c.keys.Token(token)]
	if !found || c.now().After(entry.expiresAt) {
		return nil, domain.ErrCacheMiss
	}
	view := entry.view
	return &view, nil
}

// Set stores the lookup under both key shapes. Entries never outlive the session.
func (c *SessionCache) Set(_ context.Context, view domain.SessionView) error {
	now := c.now()
	ttl := entryTTL(c.ttl, now, view.Session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{view: view, expiresAt: now.Add(ttl)}
	for _, key := range c.keys.both(view.Session.Token, view.Session.ID) {
		c.entries[key] = entry
	}
	return nil
}

// Delete removes both key shapes.
func (c *SessionCache) Delete(_ context.Context, token, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.keys.both(token, sessionID) {
		delete(c.entries, key)
	}
	return nil
}

// Ping always succeeds for the in-process cache.
func (c *SessionCache) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored keys.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop.
func (c *SessionCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanup removes expired entries.
func (c *SessionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// cleanupLoop runs periodic cleanup of expired entries.
func (c *SessionCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// entryTTL caps ttl at the time remaining until sessionExpiry.
func entryTTL(ttl time.Duration, now, sessionExpiry time.Time) time.Duration {
	if sessionExpiry.IsZero() {
		return ttl
	}
	if remaining := sessionExpiry.Sub(now); remaining < ttl {
		return remaining
	}
	return ttl
}
