package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auth-bridge/internal/adapter/handler"
	"auth-bridge/internal/domain"
	"auth-bridge/internal/infrastructure/cache"
	"auth-bridge/internal/infrastructure/token"
	"auth-bridge/internal/testutil"
	"auth-bridge/internal/usecase"
	appmiddleware "auth-bridge/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret       = "router-test-secret-at-least-32-bytes-long"
	testSharedSecret = "internal-secret"
)

var alice = domain.User{ID: "user-alice", Email: "alice@example.com", Name: "Alice", EmailVerified: true}

type env struct {
	router *Router
	store  *testutil.MemoryStore
	redis  *miniredis.Miniredis
	lookup *usecase.SessionLookup
}

func newEnv(t *testing.T, sharedSecret string) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemoryStore()
	store.AddUser(alice, "google")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessionCache := cache.NewRedisSessionCache(client, cache.DefaultKeys, time.Hour, time.Second)

	issuer, err := token.NewJWTIssuer(token.JWTConfig{Secret: testSecret, Issuer: "auth-bridge", TTL: time.Hour})
	require.NoError(t, err)

	lookup := usecase.NewSessionLookup(store, sessionCache, logger)
	lifecycle := usecase.NewSessionLifecycle(store, 24*time.Hour, logger)
	usecase.NewSingleSessionEnforcer(store, sessionCache, logger).Register(lifecycle)
	providers := usecase.NewProviderResolver(store, logger)

	cookies := handler.CookieConfig{SessionName: "session_token", ServiceTokenName: "service_token"}
	r := NewRouter(Handlers{
		Bridge: handler.NewBridgeHandler(
			usecase.NewSyncSession(lookup, providers, issuer, logger),
			usecase.NewLogout(lookup, providers, lifecycle, logger),
			usecase.NewCheckProvider(providers),
			cookies,
		),
		Validate:    handler.NewValidateHandler(lookup, cookies),
		UserSession: handler.NewUserSessionHandler(lookup, cookies),
		Internal:    handler.NewInternalSessionHandler(lifecycle, logger),
		Health:      handler.NewHealthHandler(map[string]handler.Pinger{"cache": sessionCache}),
	}, Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AuthSharedSecret: sharedSecret,
	}, logger)
	t.Cleanup(r.CloseLimiters)

	return &env{router: r, store: store, redis: mr, lookup: lookup}
}

func (e *env) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.lookup.Drain(ctx))
}

// login creates a session through the internal route, as the identity
// provider does after a successful sign-in.
func (e *env) login(t *testing.T, userID string) (id, tok string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/sessions", strings.NewReader(`{"user_id":"`+userID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(appmiddleware.InternalAuthHeader, testSharedSecret)

	rec := e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.ID, body.Token
}

func syncRequest(sessionToken string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/bridge/auth/_sync", nil)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: "session_token", Value: sessionToken})
	}
	return req
}

func TestRouter_SingleSessionScenario(t *testing.T) {
	e := newEnv(t, testSharedSecret)

	_, tokA := e.login(t, alice.ID)
	rec := e.do(t, syncRequest(tokA))
	require.Equal(t, http.StatusOK, rec.Code)
	e.drain(t)
	assert.True(t, e.redis.Exists("session_cache:"+tokA))

	idB, tokB := e.login(t, alice.ID)

	// The superseded session's cache entry is gone and it no longer syncs.
	assert.False(t, e.redis.Exists("session_cache:"+tokA))
	rec = e.do(t, syncRequest(tokA))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, syncRequest(tokB))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", rec.Header().Get("Cache-Control"))
	var serviceToken string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "service_token" {
			serviceToken = c.Value
		}
	}
	assert.NotEmpty(t, serviceToken)

	e.drain(t)
	assert.True(t, e.redis.Exists("session_cache:"+tokB))
	assert.True(t, e.redis.Exists("session:"+idB))

	rec = e.do(t, syncRequest(tokB))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	logout := httptest.NewRequest(http.MethodGet, "/api/bridge/auth/logout", nil)
	logout.AddCookie(&http.Cookie{Name: "session_token", Value: tokB})
	rec = e.do(t, logout)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	cleared := map[string]int{}
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		cleared[c.Name]++
	}
	assert.Equal(t, 1, cleared["service_token"])
	assert.Equal(t, 2, cleared["session_token"])

	assert.False(t, e.redis.Exists("session_cache:"+tokB))
	assert.False(t, e.redis.Exists("session:"+idB))
	assert.Empty(t, e.store.SessionsFor(alice.ID))

	rec = e.do(t, syncRequest(tokB))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CheckProviderRateLimited(t *testing.T) {
	e := newEnv(t, testSharedSecret)

	var last *httptest.ResponseRecorder
	for range checkProviderBurst + 1 {
		req := httptest.NewRequest(http.MethodPost, "/api/bridge/auth/check-provider", strings.NewReader(`{"email":"alice@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		last = e.do(t, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestRouter_InternalRoutes(t *testing.T) {
	t.Run("missing secret header is rejected", func(t *testing.T) {
		e := newEnv(t, testSharedSecret)
		req := httptest.NewRequest(http.MethodPost, "/internal/sessions", strings.NewReader(`{"user_id":"user-alice"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := e.do(t, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, e.store.SessionsFor(alice.ID))
	})

	t.Run("revoke by id", func(t *testing.T) {
		e := newEnv(t, testSharedSecret)
		id, tok := e.login(t, alice.ID)

		req := httptest.NewRequest(http.MethodDelete, "/internal/sessions/"+id, nil)
		req.Header.Set(appmiddleware.InternalAuthHeader, testSharedSecret)
		rec := e.do(t, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, http.StatusUnauthorized, e.do(t, syncRequest(tok)).Code)
	})

	t.Run("not mounted without a shared secret", func(t *testing.T) {
		e := newEnv(t, "")
		req := httptest.NewRequest(http.MethodPost, "/internal/sessions", strings.NewReader(`{"user_id":"user-alice"}`))
		req.Header.Set("Content-Type", "application/json")

		assert.Equal(t, http.StatusNotFound, e.do(t, req).Code)
	})
}

func TestRouter_OperationalRoutes(t *testing.T) {
	e := newEnv(t, "")

	assert.Equal(t, http.StatusOK, e.do(t, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, e.do(t, httptest.NewRequest(http.MethodGet, "/api/health/ping", nil)).Code)

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	e.redis.SetError("connection lost")
	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	e.redis.SetError("")

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/nope", body["path"])
}
