package usecase

import (
	"context"
	"fmt"
	"strings"

	"auth-bridge/internal/domain"
)

// CheckProvider reports the sign-in providers of an email address.
type CheckProvider struct {
	providers *ProviderResolver
}

// NewCheckProvider creates a new CheckProvider usecase.
func NewCheckProvider(p *ProviderResolver) *CheckProvider {
	return &CheckProvider{providers: p}
}

// Execute returns the provider label for email, or "none".
func (uc *CheckProvider) Execute(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidRequest)
	}
	return uc.providers.ForEmail(ctx, email), nil
}
