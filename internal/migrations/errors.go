package migrations

import "errors"

var (
	// ErrUnknownMigration means the id is not registered. Retrying with the same id cannot succeed.
	ErrUnknownMigration = errors.New("unknown migration")
	// ErrNullArgument means a required argument was empty or nil.
	ErrNullArgument = errors.New("null argument")
	// ErrMissingExpectedField means the case's state implies a data field that is not there.
	ErrMissingExpectedField = errors.New("missing expected field")
	// ErrInvalidState means the case is in a state the migration has no rule for.
	ErrInvalidState = errors.New("invalid state for migration")
)
