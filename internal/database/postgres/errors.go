package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/mngr/internal/errs"
)

// PostgreSQL SQLSTATE codes and classes the driver distinguishes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection      = "08"
	pgClassDataException   = "22"
	pgClassIntegrity       = "23"
	pgClassInvalidAuth     = "28"
	pgErrInsufficientPriv  = "42501"
	pgErrQueryCanceled     = "57014"
	pgErrAdminShutdown     = "57P01"
	pgErrCannotConnectNow  = "57P03"
	pgErrTooManyConnection = "53300"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
// err must be non-nil.
func mapError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(kindForSQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func kindForSQLState(code string) errs.ErrKind {
	switch code {
	case pgErrInsufficientPriv:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrAdminShutdown, pgErrCannotConnectNow, pgErrTooManyConnection:
		return errs.ErrKindConnectionFailed
	}

	switch {
	case strings.HasPrefix(code, pgClassConnection), strings.HasPrefix(code, pgClassInvalidAuth):
		return errs.ErrKindConnectionFailed
	case strings.HasPrefix(code, pgClassIntegrity):
		return errs.ErrKindDataIntegrity
	case strings.HasPrefix(code, pgClassDataException):
		// e.g. 22P02 invalid_text_representation: a value that does not
		// survive its column cast
		return errs.ErrKindInvalidInput
	default:
		return errs.ErrKindQueryFailed
	}
}
