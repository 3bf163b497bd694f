// Copyright 2025 Certen Protocol
//
// Package coordinator provides sentinel errors for ceremony state
// transitions.

package coordinator

import "errors"

// Sentinel errors for coordinator operations
var (
	// ErrShutdown is returned by every mutating operation after Shutdown
	ErrShutdown = errors.New("coordinator has been shut down")

	// ErrAlreadyInQueue is returned when an admitted participant is admitted
	// again
	ErrAlreadyInQueue = errors.New("participant is already in the queue")

	// ErrAlreadyContributing is returned when the participant is currently
	// contributing or has finished the current round
	ErrAlreadyContributing = errors.New("participant is already participating in the current round")

	// ErrBannedParticipant is returned when a banned participant attempts an
	// operation
	ErrBannedParticipant = errors.New("participant has been banned from the ceremony")

	// ErrDroppedParticipant is returned when a dropped participant attempts
	// an operation
	ErrDroppedParticipant = errors.New("participant has been dropped from the ceremony")

	// ErrNotCurrentContributor is returned when an operation requires the
	// current contributor
	ErrNotCurrentContributor = errors.New("participant is not the current contributor")

	// ErrUnknownParticipant is returned when the participant is not tracked
	// by any state set
	ErrUnknownParticipant = errors.New("participant is unknown to the ceremony")

	// ErrChunkAlreadyLocked is returned when the current contributor locks
	// twice
	ErrChunkAlreadyLocked = errors.New("chunk is already locked by the current contributor")

	// ErrChunkNotLocked is returned when a contribution arrives without a
	// prior lock
	ErrChunkNotLocked = errors.New("chunk has not been locked by the current contributor")

	// ErrAddressRateLimited is returned when the source address already has
	// a queued participant
	ErrAddressRateLimited = errors.New("source address already has a participant in the queue")

	// ErrCannotBanFinished is returned when attempting to ban a finished
	// contributor; the round must be reset first
	ErrCannotBanFinished = errors.New("cannot ban a finished contributor")

	// ErrChallengeNotFound is returned when the verified artifact for a
	// round is missing from storage
	ErrChallengeNotFound = errors.New("challenge not found for round")

	// ErrInvariantViolation is returned when ceremony state is internally
	// inconsistent; the state remains on the last consistent checkpoint
	ErrInvariantViolation = errors.New("coordinator state invariant violation")
)
