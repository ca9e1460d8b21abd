// Package repository contains the sqlx-backed persistence layer. The
// database is the sole arbiter of the one-open-session and
// one-record-per-student invariants; unique violations are translated here
// into the matching typed errors.
package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pqUniqueViolation is the Postgres error code for unique constraint hits.
const pqUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
