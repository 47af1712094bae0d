package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"auth-bridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(token, id string, expiresIn time.Duration) domain.SessionView {
	now := time.Now()
	return domain.SessionView{
		Session: domain.Session{
			ID:        id,
			UserID:    "user-1",
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(expiresIn),
		},
		User: domain.User{ID: "user-1", Email: "test@example.com", Name: "Test"},
	}
}

func TestSessionCache_SetAndGet(t *testing.T) {
	c := NewSessionCache(DefaultKeys, 5*time.Minute)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), testView("tok-1", "sess-1", time.Hour)))

	got, err := c.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.Session.ID)
	assert.Equal(t, "test@example.com", got.User.Email)
	assert.Equal(t, 2, c.Len(), "both key shapes are written")
}

func TestSessionCache_NotFound(t *testing.T) {
	c := NewSessionCache(DefaultKeys, 5*time.Minute)
	defer c.Close()

	got, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestSessionCache_Expiration(t *testing.T) {
	c := NewSessionCache(DefaultKeys, 100*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), testView("tok-exp", "sess-exp", time.Hour)))

	// Before expiry
	_, err := c.Get(context.Background(), "tok-exp")
	require.NoError(t, err)

	// After expiry
	time.Sleep(150 * time.Millisecond)
	_, err = c.Get(context.Background(), "tok-exp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestSessionCache_TTLCappedAtSessionExpiry(t *testing.T) {
	c := NewSessionCache(DefaultKeys, time.Hour)
	defer c.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	view := testView("tok-cap", "sess-cap", 0)
	view.Session.ExpiresAt = now.Add(10 * time.Second)
	require.NoError(t, c.Set(context.Background(), view))

	c.now = func() time.Time { return now.Add(11 * time.Second) }
	_, err := c.Get(context.Background(), "tok-cap")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestSessionCache_ExpiredSessionNotStored(t *testing.T) {
	c := NewSessionCache(DefaultKeys, time.Hour)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), testView("tok-old", "sess-old", -time.Minute)))
	assert.Equal(t, 0, c.Len())
}

func TestSessionCache_Delete(t *testing.T) {
	c := NewSessionCache(DefaultKeys, time.Hour)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testView("tok-del", "sess-del", time.Hour)))
	require.NoError(t, c.Delete(ctx, "tok-del", "sess-del"))

	_, err := c.Get(ctx, "tok-del")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.Equal(t, 0, c.Len())

	// Deleting absent or empty keys is a no-op.
	assert.NoError(t, c.Delete(ctx, "", ""))
	assert.NoError(t, c.Delete(ctx, "missing", "missing"))
}

func TestSessionCache_Cleanup(t *testing.T) {
	c := NewSessionCache(DefaultKeys, 50*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), testView("tok-a", "sess-a", time.Hour)))
	require.NoError(t, c.Set(context.Background(), testView("tok-b", "sess-b", time.Hour)))

	time.Sleep(100 * time.Millisecond)
	c.cleanup()

	assert.Equal(t, 0, c.Len())
}

func TestSessionCache_ConcurrentAccess(t *testing.T) {
	c := NewSessionCache(DefaultKeys, 5*time.Minute)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, testView("tok", "sess", time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, "tok")
		}()
	}
	wg.Wait()
}

func TestSessionCache_CloseIsIdempotent(t *testing.T) {
	c := NewSessionCache(DefaultKeys, time.Minute)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
