package postgres

import (
	"database/sql"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/lib/pq"
)

// pq error code for unique constraint violations
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a postgres unique-constraint hit.
// The anchor engine's find-or-create steps treat this as "another creator
// already won", never as a failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// IsNoRows reports whether err is an empty query result
func IsNoRows(err error) bool {
	return ierr.Is(err, sql.ErrNoRows)
}

// WrapError maps a driver error into the application error taxonomy
func WrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsNoRows(err) {
		return ierr.WithError(err).
			WithMessage(op).
			Mark(ierr.ErrNotFound)
	}
	if IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithMessage(op).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithMessage(op).
		Mark(ierr.ErrDatabase)
}
