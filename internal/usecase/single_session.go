package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"auth-bridge/internal/domain"
	"auth-bridge/metrics"
)

const cleanupConcurrency = 4

// SingleSessionEnforcer keeps at most one live session per user by
// evicting every existing session of a user before a new one is created.
type SingleSessionEnforcer struct {
	store  domain.SessionStore
	cache  domain.SessionCache
	logger *slog.Logger
}

// NewSingleSessionEnforcer creates a new enforcer.
func NewSingleSessionEnforcer(s domain.SessionStore, c domain.SessionCache, l *slog.Logger) *SingleSessionEnforcer {
	return &SingleSessionEnforcer{
		store:  s,
		cache:  c,
		logger: l.With("component", "single_session"),
	}
}

// Register attaches the enforcer to the lifecycle.
func (e *SingleSessionEnforcer) Register(lc *SessionLifecycle) {
	lc.OnBeforeCreate(e.BeforeCreate)
	lc.OnBeforeDelete(e.Invalidate)
	lc.OnAfterDelete(e.Invalidate)
}

// BeforeCreate revokes every existing session of userID. Each session is
// cleaned up independently; the joined error is informational only.
func (e *SingleSessionEnforcer) BeforeCreate(ctx context.Context, userID string) error {
	sessions, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		metrics.CleanupFailuresTotal.WithLabelValues("list").Inc()
		e.logger.ErrorContext(ctx, "failed to list prior sessions",
			"user_id", userID,
			"error", err)
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(cleanupConcurrency)

	for _, s := range sessions {
		g.Go(func() error {
			if err := e.revoke(ctx, s); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.InfoContext(ctx, "prior sessions revoked",
		"user_id", userID,
		"count", len(sessions),
		"failed", len(errs))
	return errors.Join(errs...)
}

// Invalidate clears both cache key shapes of s.
func (e *SingleSessionEnforcer) Invalidate(ctx context.Context, s domain.Session) error {
	if err := e.cache.Delete(ctx, s.Token, s.ID); err != nil {
		metrics.CacheInvalidationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("invalidate session %s: %w", s.ID, err)
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("ok").Inc()
	return nil
}

// revoke clears the cache, deletes the row, then clears the cache again so
// a lookup that refilled the entry in between is not left behind.
func (e *SingleSessionEnforcer) revoke(ctx context.Context, s domain.Session) error {
	var errs []error

	if err := e.Invalidate(ctx, s); err != nil {
		metrics.CleanupFailuresTotal.WithLabelValues("cache").Inc()
		errs = append(errs, err)
	}

	if err := e.store.Delete(ctx, s.ID); err != nil {
		metrics.CleanupFailuresTotal.WithLabelValues("store").Inc()
		errs = append(errs, fmt.Errorf("delete session %s: %w", s.ID, err))
	} else {
		metrics.SessionsRevokedTotal.WithLabelValues(ReasonSuperseded).Inc()
	}

	if err := e.Invalidate(ctx, s); err != nil {
		metrics.CleanupFailuresTotal.WithLabelValues("cache").Inc()
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		e.logger.WarnContext(ctx, "prior session cleanup incomplete",
			"user_id", s.UserID,
			"session_id", s.ID,
			"error", err)
		return err
	}
	return nil
}
