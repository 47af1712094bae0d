package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"auth-bridge/internal/domain"
	"auth-bridge/internal/infrastructure/cache"
	"auth-bridge/internal/infrastructure/token"
	"auth-bridge/internal/testutil"

	"github.com/stretchr/testify/require"
)

const testSecret = "usecase-test-secret-at-least-32-bytes-long"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	alice = domain.User{ID: "user-alice", Email: "alice@example.com", Name: "Alice", EmailVerified: true}
	bob   = domain.User{ID: "user-bob", Email: "bob@example.com", Name: "Bob"}
)

func testSession(id, userID string) domain.Session {
	now := time.Now()
	return domain.Session{
		ID:        id,
		UserID:    userID,
		Token:     "tok-" + id,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// fixture wires the usecases over the in-memory store and cache.
type fixture struct {
	store     *testutil.MemoryStore
	cache     *cache.SessionCache
	lookup    *SessionLookup
	lifecycle *SessionLifecycle
	enforcer  *SingleSessionEnforcer
	providers *ProviderResolver
	sync      *SyncSession
	logout    *Logout
}

// newStore returns a store with alice (google) and bob (no providers).
func newStore() *testutil.MemoryStore {
	store := testutil.NewMemoryStore()
	store.AddUser(alice, "google")
	store.AddUser(bob)
	return store
}

// newFixture builds the usecases. wrap, when given, decorates the cache seen
// by the usecases; fixture.cache stays the undecorated one.
func newFixture(t *testing.T, wrap ...func(domain.SessionCache) domain.SessionCache) *fixture {
	t.Helper()

	logger := testLogger()
	store := newStore()

	c := cache.NewSessionCache(cache.DefaultKeys, time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	var front domain.SessionCache = c
	for _, w := range wrap {
		front = w(front)
	}

	issuer, err := token.NewJWTIssuer(token.JWTConfig{Secret: testSecret, TTL: 7 * 24 * time.Hour})
	require.NoError(t, err)

	lookup := NewSessionLookup(store, front, logger)
	lifecycle := NewSessionLifecycle(store, 7*24*time.Hour, logger)
	enforcer := NewSingleSessionEnforcer(store, front, logger)
	enforcer.Register(lifecycle)
	providers := NewProviderResolver(store, logger)

	return &fixture{
		store:     store,
		cache:     c,
		lookup:    lookup,
		lifecycle: lifecycle,
		enforcer:  enforcer,
		providers: providers,
		sync:      NewSyncSession(lookup, providers, issuer, logger),
		logout:    NewLogout(lookup, providers, lifecycle, logger),
	}
}

// gatedCache holds every Set until release is closed. entered receives once
// a Set is waiting.
type gatedCache struct {
	domain.SessionCache
	entered chan struct{}
	release chan struct{}
}

func newGatedCache(inner domain.SessionCache) *gatedCache {
	return &gatedCache{
		SessionCache: inner,
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (g *gatedCache) Set(ctx context.Context, view domain.SessionView) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.SessionCache.Set(ctx, view)
}

func (g *gatedCache) waitForSet(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("cache fill never started")
	}
}

// requireNotCached asserts that neither key shape of s resolves.
func requireNotCached(t *testing.T, f *fixture, s domain.Session) {
	t.Helper()
	_, err := f.cache.Get(context.Background(), s.Token)
	require.ErrorIs(t, err, domain.ErrCacheMiss)
	require.Zero(t, f.cache.Len(), "no token or id key may remain")
}
