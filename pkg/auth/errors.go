// Copyright 2025 Certen Protocol
//
// Package auth provides sentinel errors for request authentication.

package auth

import "errors"

// Sentinel errors for signature and header verification
var (
	// ErrInvalidSignature is returned when the detached signature does not
	// verify against the canonical message
	ErrInvalidSignature = errors.New("request's signature is invalid")

	// ErrMissingSigningKey is returned when no signature header is present
	ErrMissingSigningKey = errors.New("couldn't verify signature because of missing signing key")

	// ErrInvalidDigestHeader is returned when the Digest header is not of the
	// form sha-256=<base64>
	ErrInvalidDigestHeader = errors.New("digest header is badly formatted")

	// ErrWrongDigestEncoding is returned when the digest value is not base64
	ErrWrongDigestEncoding = errors.New("digest of request's body is not base64 encoded")

	// ErrInvalidLengthHeader is returned when Content-Length is not a
	// non-negative integer
	ErrInvalidLengthHeader = errors.New("content-length header is badly formatted")
)
