// Package sentinel defines the error values stores and models report for
// infrastructure facts. Services translate them into coded domain errors
// (pkg/domain-errors) at the boundary, so error text never drives control
// flow and transports never match on strings.
package sentinel

import "errors"

var (
	// ErrNotFound reports that nothing exists for the key: an unregistered
	// domain, or a domain without an active certificate.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a uniqueness violation. A domain name is claimed
	// platform-wide, so a second registration surfaces this regardless of
	// which tenant holds it. Postgres stores map unique-violation (23505)
	// here; the optimistic version predicate surfaces it on concurrent
	// writes to the same row.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState reports a lifecycle transition the status table does
	// not allow, such as verifying a suspended domain or issuing against a
	// released one.
	ErrInvalidState = errors.New("invalid state")
)
