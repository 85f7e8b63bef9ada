package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/DatLens/internal/errs"
)

// SQL Server engine error numbers.
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errCannotOpenDB    = 4060
	errLoginFailed     = 18456
	errSelectDenied    = 229
	errColumnDenied    = 230
	errInvalidObject   = 208
	errSyntax          = 102
	errInvalidColumn   = 207
	errMissingRoutine  = 2812
	errDeadlockVictim  = 1205
	errConnectionReset = 233
)

// mapError translates go-mssqldb errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return errs.Wrap(
			classifyNumber(sqlErr.Number),
			fmt.Sprintf("%s: %s", msg, sqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyNumber maps SQL Server error numbers to ErrKind.
func classifyNumber(number int32) errs.ErrKind {
	switch number {
	case errCannotOpenDB, errLoginFailed, errConnectionReset:
		return errs.ErrKindConnectionFailed
	case errSelectDenied, errColumnDenied:
		return errs.ErrKindPermissionDenied
	case errInvalidObject, errMissingRoutine:
		return errs.ErrKindNotFound
	case errSyntax, errInvalidColumn, errDeadlockVictim:
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}

// errTableNotFound reports a table that disappeared between the name listing
// and the structure read, or one the login cannot see.
func errTableNotFound(schema, table string) *errs.Error {
	return errs.Newf(errs.ErrKindNotFound, "table %s.%s not found or has no visible columns", schema, table)
}
