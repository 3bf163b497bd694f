// Copyright 2025 Certen Protocol
//
// Package objectstore provides sentinel errors for bucket operations.

package objectstore

import "errors"

// Sentinel errors for object-store exchanges
var (
	// ErrEmptyContribution is returned when the contribution object exists
	// but holds no bytes
	ErrEmptyContribution = errors.New("contribution file is present but empty")

	// ErrEmptyContributionSignature is returned when the signature object
	// exists but holds no bytes
	ErrEmptyContributionSignature = errors.New("contribution file signature is present but empty")

	// ErrRetriesExhausted wraps the final transient error once the retry
	// budget is spent
	ErrRetriesExhausted = errors.New("object store retries exhausted")
)
