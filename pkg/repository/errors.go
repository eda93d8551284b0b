package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// MapError converts storage errors into a domain's sentinels: no rows
// becomes notFound and a unique violation becomes duplicate. Anything else
// passes through untouched.
func MapError(err, notFound, duplicate error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr.Code == uniqueViolation {
		return duplicate
	}
	return err
}
