// Package session holds the in-memory working state of a console
// session: the live alert list, the activity log, and the per-alert
// evidence set. Stores are safe for concurrent use since bus consumers
// can inject alerts from outside the UI event loop.
package session

import "errors"

var (
	// ErrNotFound is returned when an alert or case ID has no record
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when creating an alert whose ID is
	// already present
	ErrDuplicateID = errors.New("duplicate id")
)
