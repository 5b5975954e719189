package storage

import "errors"

// Errors shared by every store implementation.
var (
	// ErrNotFound means no token, trade or bundle has the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means a trade or bundle id was already recorded.
	// Trade and bundle records are written once; replays of a confirmed
	// trade surface as this error.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput means a store rejected a malformed record or query.
	ErrInvalidInput = errors.New("invalid input")
)
