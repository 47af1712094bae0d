package postgres

import (
	"context"
	"log/slog"

	"auth-bridge/internal/domain"
)

// AccountStore implements domain.AccountReader on PostgreSQL.
type AccountStore struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewAccountStore creates a new account store.
func NewAccountStore(db DatabaseIface, logger *slog.Logger) *AccountStore {
	return &AccountStore{db: db, logger: logger}
}

// ProviderIDs returns the provider ids of every account linked to userID.
func (a *AccountStore) ProviderIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := a.db.Query(ctx,
		`SELECT provider_id FROM account WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, wrapErr("list providers", err, domain.ErrUserNotFound)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan provider", err, domain.ErrUserNotFound)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list providers", err, domain.ErrUserNotFound)
	}
	return ids, nil
}

// FindUserByEmail returns the user registered under email, compared case-insensitively.
func (a *AccountStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u domain.User
	err := a.db.QueryRow(ctx,
		`SELECT id, email, name, email_verified, created_at FROM "user" WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.CreatedAt)
	if err != nil {
		return nil, wrapErr("find user by email", err, domain.ErrUserNotFound)
	}
	return &u, nil
}
