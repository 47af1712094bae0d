package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-bridge/internal/domain"
)

// DatabaseIface is the subset of *pgxpool.Pool used by the stores.
// pgxmock.PgxPoolIface satisfies it in tests.
type DatabaseIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// foreignKeyViolation is the SQLSTATE raised when a session references a
// user that does not exist.
const foreignKeyViolation = "23503"

// wrapErr maps driver errors onto domain errors.
func wrapErr(op string, err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
