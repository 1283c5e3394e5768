package types

import "errors"

// Pipeline errors
var (
	// ErrMalformedStatement marks raw input that cannot be parsed into the
	// required actor/verb/object shape. Nothing is written.
	ErrMalformedStatement = errors.New("malformed xAPI statement")
	// ErrResolutionFailed marks a failed dimension or result lookup-or-insert.
	// The surrounding transaction is rolled back.
	ErrResolutionFailed = errors.New("dimension resolution failed")
	// ErrWriteFailed marks a failed fact-row insert after all resolutions
	// succeeded. The transaction is rolled back.
	ErrWriteFailed = errors.New("statement write failed")
	// ErrSchema marks a failed table creation or drop.
	ErrSchema = errors.New("schema migration failed")
)
