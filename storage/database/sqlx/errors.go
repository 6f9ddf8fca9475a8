package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	pqUniqueViolation = "23505"
	pqUndefinedTable  = "42P01"
)

// trapNoRowsErr maps psql "no rows" to the domain's not-found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func pqError(err error) (*pq.Error, bool) {
	e, ok := errors.Cause(err).(*pq.Error)
	return e, ok
}

func isUniqueViolation(err error, constraint string) bool {
	if e, ok := pqError(err); ok {
		return string(e.Code) == pqUniqueViolation && e.Constraint == constraint
	}
	return false
}

func isUndefinedTable(err error) bool {
	if e, ok := pqError(err); ok {
		return string(e.Code) == pqUndefinedTable
	}
	return false
}
