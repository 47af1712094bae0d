//go:generate mockgen -source=port.go -destination=mocks/mock_port.go -package=mocks
package domain

import "context"

// SessionStore is the relational system of record for sessions.
type SessionStore interface {
	// Lookup returns the unexpired session for token joined with its user.
	Lookup(ctx context.Context, token string) (*SessionView, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	ListByUser(ctx context.Context, userID string) ([]Session, error)
	// Insert commits s and atomically removes every other session of the same
	// user, returning the removed rows.
	Insert(ctx context.Context, s Session) ([]Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// AccountReader reads users and their linked identity-provider accounts.
type AccountReader interface {
	ProviderIDs(ctx context.Context, userID string) ([]string, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

// SessionCache holds session lookups under a token key and a session id key.
type SessionCache interface {
	// Get returns ErrCacheMiss when no entry exists for token.
	Get(ctx context.Context, token string) (*SessionView, error)
	// Set writes view under both key shapes.
	Set(ctx context.Context, view SessionView) error
	// Delete removes both key shapes. Empty arguments are skipped.
	Delete(ctx context.Context, token, sessionID string) error
}

// TokenIssuer mints signed downstream credentials.
type TokenIssuer interface {
	IssueServiceToken(user User) (*ServiceToken, error)
}
