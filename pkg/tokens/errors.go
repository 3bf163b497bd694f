// Copyright 2025 Certen Protocol
//
// Package tokens provides sentinel errors for cohort token admission.

package tokens

import (
	"errors"
	"fmt"
)

// Sentinel errors for token admission and archive updates
var (
	// ErrInvalidTokenFormat is returned when a token is not 20 hexadecimal digits
	ErrInvalidTokenFormat = errors.New("authentification token has an invalid token format (hexadecimal 10 bytes)")

	// ErrCeremonyIsOver is returned when the current cohort index is past the
	// last configured cohort
	ErrCeremonyIsOver = errors.New("ceremony is over, no more contributions are allowed")

	// ErrInvalidNewTokens is returned when an archive update changes the
	// current cohort's token set
	ErrInvalidNewTokens = errors.New("updated tokens for current cohort don't match the old ones")
)

// InvalidTokenError is returned when a well-formed token is not in the
// current cohort's set.
type InvalidTokenError struct {
	Cohort int
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("authentification token for cohort %d is invalid", e.Cohort)
}
