package usecase

import (
	"context"
	"errors"
	"log/slog"

	"auth-bridge/internal/domain"
	"auth-bridge/metrics"
)

// SyncResult is a verified session and the credential minted for it.
type SyncResult struct {
	User     domain.User
	Session  domain.Session
	Provider string
	Token    *domain.ServiceToken
	CacheHit bool
}

// SyncSession converts a session token into a signed service token.
type SyncSession struct {
	lookup    *SessionLookup
	providers *ProviderResolver
	issuer    domain.TokenIssuer
	logger    *slog.Logger
}

// NewSyncSession creates a new SyncSession usecase.
func NewSyncSession(lookup *SessionLookup, p *ProviderResolver, i domain.TokenIssuer, l *slog.Logger) *SyncSession {
	return &SyncSession{
		lookup:    lookup,
		providers: p,
		issuer:    i,
		logger:    l.With("component", "sync_session"),
	}
}

// Execute verifies sessionToken and mints a service token for its user.
// An absent or revoked session returns domain.ErrSessionNotFound; store and
// cache failures on the read path are returned as is.
func (uc *SyncSession) Execute(ctx context.Context, sessionToken string) (*SyncResult, error) {
	res, err := uc.lookup.Lookup(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			metrics.SyncTotal.WithLabelValues("unauthenticated").Inc()
		} else {
			metrics.SyncTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	view := res.View
	provider, err := uc.providers.Label(ctx, view.User.ID)
	if err != nil {
		uc.logger.WarnContext(ctx, "provider resolution failed",
			"user_id", view.User.ID,
			"error", err)
		provider = ProviderUnknown
	}

	token, err := uc.issuer.IssueServiceToken(view.User)
	if err != nil {
		metrics.SyncTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ServiceTokensIssuedTotal.Inc()
	metrics.SyncTotal.WithLabelValues("ok").Inc()

	uc.logger.InfoContext(ctx, "session synced",
		"user_id", view.User.ID,
		"session_id", view.Session.ID,
		"provider", provider,
		"cache_hit", res.CacheHit)

	return &SyncResult{
		User:     view.User,
		Session:  view.Session,
		Provider: provider,
		Token:    token,
		CacheHit: res.CacheHit,
	}, nil
}
