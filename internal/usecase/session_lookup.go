package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"auth-bridge/internal/domain"
	"auth-bridge/metrics"
)

const (
	defaultWriteTimeout = 2 * time.Second
	cacheReadAttempts   = 2
)

// LookupResult is a resolved session and whether it came from the cache.
type LookupResult struct {
	View     *domain.SessionView
	CacheHit bool
}

// SessionLookup resolves session tokens read-through the cache.
// Cache fills happen in the background and never delay the caller.
type SessionLookup struct {
	store        domain.SessionStore
	cache        domain.SessionCache
	logger       *slog.Logger
	now          func() time.Time
	writeTimeout time.Duration

	pending sync.WaitGroup
}

// NewSessionLookup creates a new SessionLookup usecase.
func NewSessionLookup(s domain.SessionStore, c domain.SessionCache, l *slog.Logger) *SessionLookup {
	return &SessionLookup{
		store:        s,
		cache:        c,
		logger:       l.With("component", "session_lookup"),
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
}

// Lookup returns the session for token. A cache hit is served as is; a miss
// falls through to the store and schedules a fill of both key shapes.
// Returns domain.ErrSessionNotFound when the store has no valid session.
func (uc *SessionLookup) Lookup(ctx context.Context, token string) (*LookupResult, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	if view, ok := uc.fromCache(ctx, token); ok {
		return &LookupResult{View: view, CacheHit: true}, nil
	}

	view, err := uc.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	uc.fill(ctx, *view)
	return &LookupResult{View: view}, nil
}

// Peek resolves token like Lookup but never writes to the cache. Used on
// paths that are about to revoke the session.
func (uc *SessionLookup) Peek(ctx context.Context, token string) (*domain.SessionView, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	if view, ok := uc.fromCache(ctx, token); ok {
		return view, nil
	}
	return uc.store.Lookup(ctx, token)
}

// Invalidate removes both key shapes of a session. Failures are logged and
// counted; the caller is never failed.
func (uc *SessionLookup) Invalidate(ctx context.Context, token, sessionID string) {
	ctx = context.WithoutCancel(ctx)
	if err := uc.cache.Delete(ctx, token, sessionID); err != nil {
		metrics.CacheInvalidationsTotal.WithLabelValues("error").Inc()
		uc.logger.WarnContext(ctx, "cache invalidation failed",
			"session_id", sessionID,
			"error", err)
		return
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("ok").Inc()
}

// Drain blocks until all scheduled cache fills have finished or ctx is done.
func (uc *SessionLookup) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fromCache reads token from the cache. Expired hits are evicted and
// reported as misses; cache failures are reported as misses too.
func (uc *SessionLookup) fromCache(ctx context.Context, token string) (*domain.SessionView, bool) {
	view, err := uc.readCache(ctx, token)
	switch {
	case err == nil:
		if view.Session.Expired(uc.now()) {
			uc.Invalidate(ctx, token, view.Session.ID)
			metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultMiss).Inc()
			return nil, false
		}
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultHit).Inc()
		return view, true
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultMiss).Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultError).Inc()
		uc.logger.WarnContext(ctx, "cache read failed, falling back to store", "error", err)
	}
	return nil, false
}

// readCache retries once when the first read timed out.
func (uc *SessionLookup) readCache(ctx context.Context, token string) (*domain.SessionView, error) {
	var (
		view *domain.SessionView
		err  error
	)
	for attempt := 1; attempt <= cacheReadAttempts; attempt++ {
		view, err = uc.cache.Get(ctx, token)
		if err == nil || !isTimeout(err) || ctx.Err() != nil {
			return view, err
		}
		uc.logger.DebugContext(ctx, "cache read timed out", "attempt", attempt)
	}
	return view, err
}

func (uc *SessionLookup) fill(ctx context.Context, view domain.SessionView) {
	ctx = context.WithoutCancel(ctx)

	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, uc.writeTimeout)
		defer cancel()

		if err := uc.cache.Set(ctx, view); err != nil {
			metrics.CacheWriteErrorsTotal.Inc()
			uc.logger.WarnContext(ctx, "cache write failed",
				"session_id", view.Session.ID,
				"error", err)
			return
		}
		uc.discardIfRevoked(ctx, view.Session)
	}()
}

// discardIfRevoked re-reads the row after a fill has landed. A revoke that
// deleted the row between the store read and the cache write has already run
// its invalidations, so the fill itself must remove what it wrote. Any store
// error is treated as revoked.
func (uc *SessionLookup) discardIfRevoked(ctx context.Context, s domain.Session) {
	current, err := uc.store.GetByToken(ctx, s.Token)
	if err == nil && current.ID == s.ID {
		return
	}

	metrics.StaleFillsDiscardedTotal.Inc()
	uc.logger.InfoContext(ctx, "discarding cache fill for revoked session",
		"session_id", s.ID,
		"error", err)
	uc.Invalidate(ctx, s.Token, s.ID)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
