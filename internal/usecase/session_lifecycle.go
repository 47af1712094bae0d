package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auth-bridge/internal/domain"
	"auth-bridge/metrics"
)

const sessionTokenBytes = 32

// Revocation reasons reported in metrics.
const (
	ReasonSuperseded = "superseded"
	ReasonLogout     = "logout"
	ReasonRevoked    = "revoked"
)

// BeforeCreateHook runs before a session for userID is committed.
type BeforeCreateHook func(ctx context.Context, userID string) error

// SessionHook runs around the removal of a session.
type SessionHook func(ctx context.Context, s domain.Session) error

// SessionLifecycle is the single entry point for creating and removing
// sessions. Hooks run in registration order on a context that ignores
// cancellation, and a failing hook never stops its siblings.
type SessionLifecycle struct {
	store  domain.SessionStore
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	beforeCreate []BeforeCreateHook
	beforeDelete []SessionHook
	afterDelete  []SessionHook
}

// NewSessionLifecycle creates a lifecycle issuing sessions valid for ttl.
func NewSessionLifecycle(s domain.SessionStore, ttl time.Duration, l *slog.Logger) *SessionLifecycle {
	return &SessionLifecycle{
		store:  s,
		logger: l.With("component", "session_lifecycle"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// OnBeforeCreate registers a hook run before a new session is inserted.
func (lc *SessionLifecycle) OnBeforeCreate(h BeforeCreateHook) {
	lc.beforeCreate = append(lc.beforeCreate, h)
}

// OnBeforeDelete registers a hook run before a session row is deleted.
func (lc *SessionLifecycle) OnBeforeDelete(h SessionHook) {
	lc.beforeDelete = append(lc.beforeDelete, h)
}

// OnAfterDelete registers a hook run after a session row is deleted.
func (lc *SessionLifecycle) OnAfterDelete(h SessionHook) {
	lc.afterDelete = append(lc.afterDelete, h)
}

// Create issues a new session for userID. Store errors propagate; hook
// errors are logged only.
func (lc *SessionLifecycle) Create(ctx context.Context, userID string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}

	now := lc.now()
	s := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(lc.ttl),
	}

	detached := context.WithoutCancel(ctx)
	for i, hook := range lc.beforeCreate {
		if err := hook(detached, userID); err != nil {
			lc.logger.WarnContext(ctx, "before-create hook failed",
				"hook", i,
				"user_id", userID,
				"error", err)
		}
	}

	swept, err := lc.store.Insert(ctx, s)
	if err != nil {
		return nil, err
	}

	// Rows a racing create committed after the hooks ran.
	for _, old := range swept {
		lc.runHooks(detached, "before-delete", lc.beforeDelete, old)
		lc.runHooks(detached, "after-delete", lc.afterDelete, old)
		metrics.SessionsRevokedTotal.WithLabelValues(ReasonSuperseded).Inc()
	}

	lc.logger.InfoContext(ctx, "session created",
		"user_id", userID,
		"session_id", s.ID,
		"swept", len(swept))
	return &s, nil
}

// Delete removes s. The before-delete hooks run first, the row delete is
// authoritative and its error is returned.
func (lc *SessionLifecycle) Delete(ctx context.Context, s domain.Session) error {
	return lc.delete(ctx, s, ReasonRevoked)
}

// RevokeByToken removes the session holding token. An unknown token still
// has its cache entry invalidated and is not an error.
func (lc *SessionLifecycle) RevokeByToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	s, err := lc.store.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		lc.runHooks(context.WithoutCancel(ctx), "before-delete", lc.beforeDelete, domain.Session{Token: token})
		return nil
	}
	if err != nil {
		return err
	}
	return lc.delete(ctx, *s, ReasonLogout)
}

// RevokeByID removes the session with sessionID. Unknown ids are not an error.
func (lc *SessionLifecycle) RevokeByID(ctx context.Context, sessionID string) error {
	s, err := lc.store.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		lc.runHooks(context.WithoutCancel(ctx), "before-delete", lc.beforeDelete, domain.Session{ID: sessionID})
		return nil
	}
	if err != nil {
		return err
	}
	return lc.delete(ctx, *s, ReasonRevoked)
}

func (lc *SessionLifecycle) delete(ctx context.Context, s domain.Session, reason string) error {
	ctx = context.WithoutCancel(ctx)

	lc.runHooks(ctx, "before-delete", lc.beforeDelete, s)

	if err := lc.store.Delete(ctx, s.ID); err != nil {
		return err
	}

	lc.runHooks(ctx, "after-delete", lc.afterDelete, s)
	metrics.SessionsRevokedTotal.WithLabelValues(reason).Inc()

	lc.logger.InfoContext(ctx, "session deleted",
		"user_id", s.UserID,
		"session_id", s.ID,
		"reason", reason)
	return nil
}

func (lc *SessionLifecycle) runHooks(ctx context.Context, stage string, hooks []SessionHook, s domain.Session) {
	for i, hook := range hooks {
		if err := hook(ctx, s); err != nil {
			lc.logger.WarnContext(ctx, stage+" hook failed",
				"hook", i,
				"session_id", s.ID,
				"error", err)
		}
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
