package cache

import (
	"context"
	"testing"
	"time"

	"auth-bridge/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisSessionCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionCache(client, DefaultKeys, ttl, time.Second), mr
}

func TestRedisSessionCache_SetWritesBothKeys(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testView("tok-1", "sess-1", 2*time.Hour)))

	assert.True(t, mr.Exists("session_cache:tok-1"))
	assert.True(t, mr.Exists("session:sess-1"))
	assert.Equal(t, time.Hour, mr.TTL("session_cache:tok-1"))
	assert.Equal(t, time.Hour, mr.TTL("session:sess-1"))

	got, err := c.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.Session.ID)
	assert.Equal(t, "user-1", got.User.ID)
}

func TestRedisSessionCache_TTLCappedAtSessionExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	view := testView("tok-2", "sess-2", 0)
	view.Session.ExpiresAt = now.Add(90 * time.Second)
	require.NoError(t, c.Set(context.Background(), view))

	assert.Equal(t, 90*time.Second, mr.TTL("session_cache:tok-2"))
}

func TestRedisSessionCache_ExpiredSessionNotStored(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)

	require.NoError(t, c.Set(context.Background(), testView("tok-old", "sess-old", -time.Second)))
	assert.False(t, mr.Exists("session_cache:tok-old"))
}

func TestRedisSessionCache_Miss(t *testing.T) {
	c, _ := newTestRedisCache(t, time.Hour)

	got, err := c.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestRedisSessionCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	require.NoError(t, mr.Set("session_cache:bad", "{not json"))

	_, err := c.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisSessionCache_Delete(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testView("tok-3", "sess-3", time.Hour)))
	require.NoError(t, c.Delete(ctx, "tok-3", "sess-3"))

	assert.False(t, mr.Exists("session_cache:tok-3"))
	assert.False(t, mr.Exists("session:sess-3"))

	assert.NoError(t, c.Delete(ctx, "", ""))
}

func TestRedisSessionCache_DeleteOnlyIDKey(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testView("tok-4", "sess-4", time.Hour)))
	require.NoError(t, c.Delete(ctx, "", "sess-4"))

	assert.True(t, mr.Exists("session_cache:tok-4"))
	assert.False(t, mr.Exists("session:sess-4"))
}

func TestRedisSessionCache_Unavailable(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Hour)
	ctx := context.Background()
	mr.Close()

	_, err := c.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = c.Set(ctx, testView("tok", "sess", time.Hour))
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = c.Delete(ctx, "tok", "sess")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	assert.Error(t, c.Ping(ctx))
}

func TestRedisSessionCache_CustomPrefixes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisSessionCache(client, Keys{TokenPrefix: "t:", IDPrefix: "i:"}, time.Minute, 0)
	require.NoError(t, c.Set(context.Background(), testView("abc", "xyz", time.Hour)))

	assert.True(t, mr.Exists("t:abc"))
	assert.True(t, mr.Exists("i:xyz"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), 200*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), "://bad", 0)
	assert.Error(t, err)
}
