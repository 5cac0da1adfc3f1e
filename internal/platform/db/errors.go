package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraint is non-empty the violated constraint must match it.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := maybePgError(err)
	if !ok || pgErr.Code != pgErrUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrForeignKeyViolation
}

// Classify maps driver errors onto the apperr kinds. Errors it does not
// recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	case isUnavailable(err):
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pgconn.Timeout(err)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
