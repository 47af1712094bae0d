package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-bridge/internal/domain"
)

const sessionColumns = `id, user_id, token, created_at, expires_at`

const lookupSessionQuery = `
	SELECT s.id, s.user_id, s.token, s.created_at, s.expires_at,
	       u.id, u.email, u.name, u.email_verified, u.created_at
	FROM session s
	JOIN "user" u ON u.id = s.user_id
	WHERE s.token = $1 AND s.expires_at > $2`

// SessionStore implements domain.SessionStore on PostgreSQL.
type SessionStore struct {
	db     DatabaseIface
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore(db DatabaseIface, logger *slog.Logger) *SessionStore {
	return &SessionStore{db: db, logger: logger, now: time.Now}
}

// Lookup returns the unexpired session for token joined with its user.
func (s *SessionStore) Lookup(ctx context.Context, token string) (*domain.SessionView, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var v domain.SessionView
	err := s.db.QueryRow(ctx, lookupSessionQuery, token, s.now()).Scan(
		&v.Session.ID, &v.Session.UserID, &v.Session.Token, &v.Session.CreatedAt, &v.Session.ExpiresAt,
		&v.User.ID, &v.User.Email, &v.User.Name, &v.User.EmailVerified, &v.User.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("lookup session", err, domain.ErrSessionNotFound)
	}
	return &v, nil
}

// GetByToken returns the session row for token regardless of expiry.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getOne(ctx, "get session by token",
		`SELECT `+sessionColumns+` FROM session WHERE token = $1`, token)
}

// GetByID returns the session row with sessionID regardless of expiry.
func (s *SessionStore) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.getOne(ctx, "get session by id",
		`SELECT `+sessionColumns+` FROM session WHERE id = $1`, sessionID)
}

func (s *SessionStore) getOne(ctx context.Context, op, query string, arg string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sess domain.Session
	if err := scanSession(s.db.QueryRow(ctx, query, arg), &sess); err != nil {
		return nil, wrapErr(op, err, domain.ErrSessionNotFound)
	}
	return &sess, nil
}

// ListByUser returns every session row of userID, oldest first.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM session WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, wrapErr("list sessions", err, domain.ErrSessionNotFound)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, wrapErr("list sessions", err, domain.ErrSessionNotFound)
	}
	return sessions, nil
}

// Insert commits sess and removes every other session of the same user in
// one transaction. A per-user advisory lock serialises concurrent inserts so
// exactly one row survives.
func (s *SessionStore) Insert(ctx context.Context, sess domain.Session) ([]domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, wrapErr("begin insert session", err, domain.ErrStoreUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sess.UserID); err != nil {
		return nil, wrapErr("lock user sessions", err, domain.ErrStoreUnavailable)
	}

	rows, err := tx.Query(ctx,
		`DELETE FROM session WHERE user_id = $1 RETURNING `+sessionColumns, sess.UserID)
	if err != nil {
		return nil, wrapErr("sweep sessions", err, domain.ErrStoreUnavailable)
	}
	swept, err := collectSessions(rows)
	if err != nil {
		return nil, wrapErr("sweep sessions", err, domain.ErrStoreUnavailable)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO session (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.UserID, sess.Token, sess.CreatedAt, sess.ExpiresAt,
	); err != nil {
		return nil, wrapErr("insert session", err, domain.ErrStoreUnavailable)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("commit insert session", err, domain.ErrStoreUnavailable)
	}

	if len(swept) > 0 {
		s.logger.InfoContext(ctx, "swept prior sessions",
			"user_id", sess.UserID,
			"count", len(swept))
	}
	return swept, nil
}

// Delete removes the session row. Deleting an absent row is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, `DELETE FROM session WHERE id = $1`, sessionID); err != nil {
		return wrapErr("delete session", err, domain.ErrStoreUnavailable)
	}
	return nil
}

func scanSession(row pgx.Row, sess *domain.Session) error {
	return row.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt)
}

func collectSessions(rows pgx.Rows) ([]domain.Session, error) {
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := scanSession(rows, &sess); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
