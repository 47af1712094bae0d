package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auth-bridge/internal/domain"
	"auth-bridge/internal/infrastructure/cache"
	"auth-bridge/internal/infrastructure/token"
	"auth-bridge/internal/testutil"
	"auth-bridge/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret-at-least-32-bytes-long"

var (
	alice = domain.User{ID: "user-alice", Email: "alice@example.com", Name: "Alice", EmailVerified: true}
	bob   = domain.User{ID: "user-bob", Email: "bob@example.com", Name: "Bob"}

	testCookies = CookieConfig{
		SessionName:      "session_token",
		ServiceTokenName: "service_token",
	}
)

type fixture struct {
	logger    *slog.Logger
	store     *testutil.MemoryStore
	cache     *cache.SessionCache
	lookup    *usecase.SessionLookup
	lifecycle *usecase.SessionLifecycle
	bridge    *BridgeHandler
	e         *echo.Echo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemoryStore()
	store.AddUser(alice, "google")
	store.AddUser(bob)

	c := cache.NewSessionCache(cache.DefaultKeys, time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	issuer, err := token.NewJWTIssuer(token.JWTConfig{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)

	lookup := usecase.NewSessionLookup(store, c, logger)
	lifecycle := usecase.NewSessionLifecycle(store, time.Hour, logger)
	usecase.NewSingleSessionEnforcer(store, c, logger).Register(lifecycle)
	providers := usecase.NewProviderResolver(store, logger)

	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)

	return &fixture{
		logger:    logger,
		store:     store,
		cache:     c,
		lookup:    lookup,
		lifecycle: lifecycle,
		bridge: NewBridgeHandler(
			usecase.NewSyncSession(lookup, providers, issuer, logger),
			usecase.NewLogout(lookup, providers, lifecycle, logger),
			usecase.NewCheckProvider(providers),
			testCookies,
		),
		e: e,
	}
}

// login creates a session for userID through the lifecycle.
func (f *fixture) login(t *testing.T, userID string) *domain.Session {
	t.Helper()
	s, err := f.lifecycle.Create(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.lookup.Drain(ctx))
}

func newRequest(method, target, body, sessionToken string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: testCookies.SessionName, Value: sessionToken})
	}
	return req
}

// serve runs h and, like echo's router, passes a returned error to the
// error handler.
func (f *fixture) serve(req *http.Request, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	if err := h(c); err != nil {
		f.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
