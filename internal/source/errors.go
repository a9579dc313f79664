package source

import "errors"

var (
	// ErrNotFound indicates the requested source doesn't exist.
	ErrNotFound = errors.New("source not found")

	// ErrDuplicate indicates a source with the same handle or playlist id is already tracked.
	ErrDuplicate = errors.New("source already tracked")

	// ErrInvalid indicates a descriptor missing required fields.
	ErrInvalid = errors.New("invalid source")

	// ErrKindMismatch indicates an update tried to change a source's kind.
	ErrKindMismatch = errors.New("source kind mismatch")
)
