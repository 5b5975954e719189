package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAmount is returned for zero, negative or non-finite trade amounts.
	ErrInvalidAmount = errors.New("amount must be a positive finite number")

	// ErrExceedsSupply is returned when a trade implies output beyond remaining supply.
	ErrExceedsSupply = errors.New("amount exceeds available supply")

	// ErrGraduated is returned when trading a token that left the curve.
	ErrGraduated = errors.New("token has graduated from the bonding curve")

	// ErrBlocked is returned when the anti-sandwich check rejects a trade.
	ErrBlocked = errors.New("transaction blocked for MEV protection")

	// ErrBackoffActive is returned while a previous block's retry window is open.
	ErrBackoffActive = errors.New("retry window after MEV block has not elapsed")

	// ErrUnknownTier is returned for an unrecognised bundle type.
	ErrUnknownTier = errors.New("unknown bundle type")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // optional underlying sentinel
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// WrapValidation creates a ValidationError carrying a sentinel cause.
func WrapValidation(field string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: cause.Error(), Err: cause}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
