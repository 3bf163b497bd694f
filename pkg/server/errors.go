// Copyright 2025 Certen Protocol
//
// Request pipeline error kinds and their HTTP status mapping. Every non-2xx
// response carries a code naming the error kind and a human-readable
// message so clients can branch on failures.

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/certen/ceremony-coordinator/pkg/auth"
	"github.com/certen/ceremony-coordinator/pkg/coordinator"
	"github.com/certen/ceremony-coordinator/pkg/objectstore"
	"github.com/certen/ceremony-coordinator/pkg/tokens"
)

// ResponseError is a client-visible request failure
type ResponseError struct {
	Code    string
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	return e.Message
}

func errInvalidSignature() *ResponseError {
	return &ResponseError{
		Code:    "InvalidSignature",
		Status:  http.StatusBadRequest,
		Message: "Request's signature is invalid",
	}
}

func errMissingSigningKey() *ResponseError {
	return &ResponseError{
		Code:    "MissingSigningKey",
		Status:  http.StatusBadRequest,
		Message: "Couldn't verify signature because of missing signing key",
	}
}

func errInvalidHeader(header string) *ResponseError {
	return &ResponseError{
		Code:    "InvalidHeader",
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Header %s is badly formatted", header),
	}
}

func errMissingRequiredHeader(header string) *ResponseError {
	status := http.StatusBadRequest
	if header == auth.ContentLengthHeader {
		status = http.StatusLengthRequired
	}
	return &ResponseError{
		Code:    "MissingRequiredHeader",
		Status:  status,
		Message: fmt.Sprintf("The required %s header was missing from the incoming request", header),
	}
}

func errWrongDigestEncoding() *ResponseError {
	return &ResponseError{
		Code:    "WrongDigestEncoding",
		Status:  http.StatusBadRequest,
		Message: "Digest of request's body is not base64 encoded",
	}
}

func errMismatchingChecksum(expected, actual string) *ResponseError {
	return &ResponseError{
		Code:    "MismatchingChecksum",
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Checksum of body doesn't match the expected one: expc %s, act: %s", expected, actual),
	}
}

func errSerde(message string) *ResponseError {
	return &ResponseError{
		Code:    "SerdeError",
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf("Error with Serde: %s", message),
	}
}

func errUnauthorizedParticipant(p coordinator.Participant, endpoint, cause string) *ResponseError {
	return &ResponseError{
		Code:    "UnauthorizedParticipant",
		Status:  http.StatusUnauthorized,
		Message: fmt.Sprintf("The participant %s is not allowed to access the endpoint %s because of: %s", p, endpoint, cause),
	}
}

func errInvalidSecret() *ResponseError {
	return &ResponseError{
		Code:    "InvalidSecret",
		Status:  http.StatusUnauthorized,
		Message: "The required access secret is either missing or invalid",
	}
}

func errInvalidContributionInfo(message string) *ResponseError {
	return &ResponseError{
		Code:    "InvalidContributionInfo",
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Contribution info is not valid: %s", message),
	}
}

func errIO(err error) *ResponseError {
	return &ResponseError{
		Code:    "IoError",
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("Io Error: %v", err),
	}
}

func errShutdown(err error) *ResponseError {
	return &ResponseError{
		Code:    "ShutdownError",
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("Error while terminating the ceremony: %v", err),
	}
}

// errToken maps token admission and archive failures
func errToken(err error) *ResponseError {
	var invalid *tokens.InvalidTokenError
	switch {
	case errors.Is(err, tokens.ErrInvalidTokenFormat):
		return &ResponseError{Code: "InvalidTokenFormat", Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, tokens.ErrCeremonyIsOver):
		return &ResponseError{Code: "CeremonyIsOver", Status: http.StatusUnauthorized, Message: err.Error()}
	case errors.Is(err, tokens.ErrInvalidNewTokens):
		return &ResponseError{Code: "InvalidNewTokens", Status: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &invalid):
		return &ResponseError{Code: fmt.Sprintf("InvalidToken(%d)", invalid.Cohort), Status: http.StatusUnauthorized, Message: err.Error()}
	default:
		return errIO(err)
	}
}

// errObjectStore maps bucket exchange failures; transient exhaustion is a
// retryable 5xx for the caller.
func errObjectStore(err error) *ResponseError {
	status := http.StatusInternalServerError
	if errors.Is(err, objectstore.ErrRetriesExhausted) {
		status = http.StatusBadGateway
	}
	return &ResponseError{
		Code:    "S3Error",
		Status:  status,
		Message: fmt.Sprintf("Error with S3: %v", err),
	}
}

// errCoordinator maps state machine failures onto client or server statuses
func errCoordinator(err error) *ResponseError {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coordinator.ErrAlreadyInQueue),
		errors.Is(err, coordinator.ErrAlreadyContributing),
		errors.Is(err, coordinator.ErrChunkAlreadyLocked),
		errors.Is(err, coordinator.ErrChunkNotLocked),
		errors.Is(err, coordinator.ErrAddressRateLimited),
		errors.Is(err, coordinator.ErrChallengeNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, coordinator.ErrBannedParticipant),
		errors.Is(err, coordinator.ErrDroppedParticipant),
		errors.Is(err, coordinator.ErrNotCurrentContributor),
		errors.Is(err, coordinator.ErrUnknownParticipant),
		errors.Is(err, coordinator.ErrShutdown):
		status = http.StatusUnauthorized
	}
	return &ResponseError{
		Code:    "CoordinatorError",
		Status:  status,
		Message: fmt.Sprintf("Coordinator failed: %v", err),
	}
}
