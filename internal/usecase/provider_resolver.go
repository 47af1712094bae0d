package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"auth-bridge/internal/domain"
)

// Provider labels.
const (
	ProviderEmail   = "email"
	ProviderNone    = "none"
	ProviderUnknown = "unknown"

	// credentialProvider is the account row created for password and OTP
	// sign-ups; it is reported as "email".
	credentialProvider = "credential"
)

// ProviderResolver reports which identity providers a user signed in with.
type ProviderResolver struct {
	accounts domain.AccountReader
	logger   *slog.Logger
}

// NewProviderResolver creates a new ProviderResolver.
func NewProviderResolver(a domain.AccountReader, l *slog.Logger) *ProviderResolver {
	return &ProviderResolver{accounts: a, logger: l.With("component", "provider_resolver")}
}

// Label returns the comma-joined provider ids linked to userID, or "email"
// when the user has no social provider.
func (r *ProviderResolver) Label(ctx context.Context, userID string) (string, error) {
	ids, err := r.accounts.ProviderIDs(ctx, userID)
	if err != nil {
		return "", err
	}
	return providerLabel(ids), nil
}

// ForEmail returns the provider label of the user registered under email,
// or "none" when there is no such user or the lookup fails. Both cases
// produce the same response.
func (r *ProviderResolver) ForEmail(ctx context.Context, email string) string {
	user, err := r.accounts.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			r.logger.WarnContext(ctx, "provider check lookup failed", "error", err)
		}
		return ProviderNone
	}

	label, err := r.Label(ctx, user.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "provider check account lookup failed",
			"user_id", user.ID,
			"error", err)
		return ProviderNone
	}
	return label
}

func providerLabel(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == credentialProvider {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return ProviderEmail
	}
	return strings.Join(out, ",")
}
