// Copyright 2025 Certen Protocol
//
// Request guards. Every mutating endpoint composes them in this order:
// signature verification producing an authenticated public key, a role
// check against the coordinator state, then body integrity against the
// declared digest. The role check runs before the body is read, so a
// request that fails both reports the role failure. A shared access secret
// guards the bodyless administrative status endpoint.

package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/certen/ceremony-coordinator/pkg/auth"
	"github.com/certen/ceremony-coordinator/pkg/coordinator"
)

// authenticate verifies the request signature over the canonical message
// and returns the declared public key.
func (s *Server) authenticate(r *http.Request) (string, *ResponseError) {
	pubkey := r.Header.Get(auth.PubkeyHeader)
	if pubkey == "" {
		return "", errInvalidHeader(auth.PubkeyHeader)
	}
	signature := r.Header.Get(auth.SignatureHeader)
	if signature == "" {
		return "", errInvalidHeader(auth.SignatureHeader)
	}

	headers := auth.SignatureHeaders{Pubkey: pubkey, Signature: signature}

	// POST requests carrying a body bind its digest into the signed message
	if r.Method == http.MethodPost {
		if digest := r.Header.Get(auth.BodyDigestHeader); digest != "" {
			contentLength := r.Header.Get(auth.ContentLengthHeader)
			if contentLength == "" && r.ContentLength >= 0 {
				contentLength = itoa(r.ContentLength)
			}
			if contentLength == "" {
				return "", errInvalidHeader(auth.ContentLengthHeader)
			}

			content, err := auth.ParseContentHeaders(contentLength, digest)
			if err != nil {
				return "", mapHeaderError(err)
			}
			headers.Content = &content
		}
	}

	if err := headers.Verify(); err != nil {
		if err == auth.ErrMissingSigningKey {
			return "", errMissingSigningKey()
		}
		return "", errInvalidSignature()
	}

	return pubkey, nil
}

// readVerifiedBody reads the request body and checks its integrity: the
// Digest and Content-Length headers must be present and the recomputed
// SHA-256 must match the declared one byte-for-byte.
func (s *Server) readVerifiedBody(r *http.Request) ([]byte, *ResponseError) {
	digest := r.Header.Get(auth.BodyDigestHeader)
	if digest == "" {
		return nil, errMissingRequiredHeader(auth.BodyDigestHeader)
	}
	contentLength := r.Header.Get(auth.ContentLengthHeader)
	if contentLength == "" {
		if r.ContentLength < 0 {
			return nil, errMissingRequiredHeader(auth.ContentLengthHeader)
		}
		contentLength = itoa(r.ContentLength)
	}

	content, err := auth.ParseContentHeaders(contentLength, digest)
	if err != nil {
		return nil, mapHeaderError(err)
	}

	body, readErr := io.ReadAll(io.LimitReader(r.Body, int64(content.Length)+1))
	if readErr != nil {
		return nil, errIO(readErr)
	}

	if expected, actual, ok := content.VerifyBody(body); !ok {
		return nil, errMismatchingChecksum(expected, actual)
	}

	return body, nil
}

// decodeJSON deserializes a verified body into the request type
func decodeJSON[T any](body []byte) (T, *ResponseError) {
	var value T
	if err := json.Unmarshal(body, &value); err != nil {
		return value, errSerde(err.Error())
	}
	return value, nil
}

// requireNewParticipant checks that the authenticated key belongs to a
// participant that may join the queue.
func (s *Server) requireNewParticipant(pubkey string, r *http.Request) (coordinator.Participant, string, *ResponseError) {
	participant := coordinator.NewContributor(pubkey)
	address := clientAddress(r)

	if err := s.coordinator.AddToQueueChecks(participant, address); err != nil {
		return participant, "", errUnauthorizedParticipant(participant, r.URL.Path, err.Error())
	}
	return participant, address, nil
}

// requireCurrentContributor checks that the authenticated key holds the
// round's contributor slot, with a descriptive cause otherwise.
func (s *Server) requireCurrentContributor(pubkey string, r *http.Request) (coordinator.Participant, *ResponseError) {
	participant := coordinator.NewContributor(pubkey)
	if s.coordinator.IsCurrentContributor(participant) {
		return participant, nil
	}

	cause := "Participant is not the current contributor"
	if s.coordinator.IsBannedParticipant(participant) {
		cause = "Participant has been banned from the ceremony"
	} else if s.coordinator.IsDroppedParticipant(participant) {
		cause = "Participant has been dropped from the ceremony"
	}
	return participant, errUnauthorizedParticipant(participant, r.URL.Path, cause)
}

// requireServerAuth checks that the authenticated key is the coordinator's
// own verifier.
func (s *Server) requireServerAuth(pubkey string, r *http.Request) *ResponseError {
	verifier := coordinator.NewVerifier(pubkey)
	if pubkey != s.cfg.VerifierKey {
		return errUnauthorizedParticipant(verifier, r.URL.Path, "Not the coordinator's verifier")
	}
	return nil
}

// requireSecret checks the shared process-wide access secret header
func (s *Server) requireSecret(r *http.Request) *ResponseError {
	if r.Header.Get(auth.AccessSecretHeader) != s.cfg.AccessSecret {
		return errInvalidSecret()
	}
	return nil
}

func mapHeaderError(err error) *ResponseError {
	switch err {
	case auth.ErrWrongDigestEncoding:
		return errWrongDigestEncoding()
	case auth.ErrInvalidLengthHeader:
		return errInvalidHeader(auth.ContentLengthHeader)
	default:
		return errInvalidHeader(auth.BodyDigestHeader)
	}
}

// clientAddress is the host part of the request's remote address
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
