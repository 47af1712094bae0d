package usecase

import (
	"context"
	"errors"
	"log/slog"

	"auth-bridge/internal/domain"
)

// SessionRevoker removes a session by its token.
type SessionRevoker interface {
	RevokeByToken(ctx context.Context, token string) error
}

// LogoutResult describes what a logout found. It is informational only.
type LogoutResult struct {
	UserID   string
	Provider string
	Revoked  bool
}

// Logout revokes the caller's session. It never fails from the caller's
// point of view.
type Logout struct {
	lookup    *SessionLookup
	providers *ProviderResolver
	revoker   SessionRevoker
	logger    *slog.Logger
}

// NewLogout creates a new Logout usecase.
func NewLogout(lookup *SessionLookup, p *ProviderResolver, r SessionRevoker, l *slog.Logger) *Logout {
	return &Logout{
		lookup:    lookup,
		providers: p,
		revoker:   r,
		logger:    l.With("component", "logout"),
	}
}

// Execute revokes the session holding sessionToken, if any.
func (uc *Logout) Execute(ctx context.Context, sessionToken string) *LogoutResult {
	result := &LogoutResult{}
	if sessionToken == "" {
		return result
	}

	var sessionID string
	view, err := uc.lookup.Peek(ctx, sessionToken)
	switch {
	case err == nil:
		sessionID = view.Session.ID
		result.UserID = view.User.ID
		if label, err := uc.providers.Label(ctx, view.User.ID); err == nil {
			result.Provider = label
		} else {
			result.Provider = ProviderUnknown
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		uc.logger.WarnContext(ctx, "logout session lookup failed", "error", err)
	}

	if err := uc.revoker.RevokeByToken(ctx, sessionToken); err != nil {
		uc.logger.WarnContext(ctx, "logout revoke failed",
			"session_id", sessionID,
			"error", err)
		uc.lookup.Invalidate(ctx, sessionToken, sessionID)
		return result
	}

	result.Revoked = view != nil
	uc.logger.InfoContext(ctx, "logged out",
		"user_id", result.UserID,
		"session_id", sessionID,
		"provider", result.Provider)
	return result
}
