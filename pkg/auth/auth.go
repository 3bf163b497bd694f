// Copyright 2025 Certen Protocol
//
// Request Signature Verification
// Verifies the detached ed25519 signature carried by the ceremony request
// headers over the canonical message derived from them.

package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
)

// Header names of the authenticated request contract
const (
	PubkeyHeader        = "ATS-Pubkey"
	SignatureHeader     = "ATS-Signature"
	BodyDigestHeader    = "Digest"
	ContentLengthHeader = "Content-Length"
	AccessSecretHeader  = "Access-Secret"
)

// digestPrefix is the required algorithm tag of the Digest header
const digestPrefix = "sha-256="

// RequestContent describes the body of a signed request: its declared length
// and the base64-encoded SHA-256 digest from the Digest header.
type RequestContent struct {
	Length int
	Digest string
}

// NewRequestContent builds the content descriptor from raw body bytes.
// Used by tests and clients to produce matching headers.
func NewRequestContent(body []byte) RequestContent {
	sum := sha256.Sum256(body)
	return RequestContent{
		Length: len(body),
		Digest: base64.StdEncoding.EncodeToString(sum[:]),
	}
}

// DigestHeader returns the value for the Digest header
func (c RequestContent) DigestHeader() string {
	return digestPrefix + c.Digest
}

// ParseContentHeaders validates the Content-Length and Digest header values
// and returns the parsed content descriptor.
func ParseContentHeaders(contentLength, digest string) (RequestContent, error) {
	value, ok := strings.CutPrefix(digest, digestPrefix)
	if !ok {
		return RequestContent{}, ErrInvalidDigestHeader
	}

	if _, err := base64.StdEncoding.DecodeString(value); err != nil {
		return RequestContent{}, ErrWrongDigestEncoding
	}

	length, err := strconv.Atoi(contentLength)
	if err != nil || length < 0 {
		return RequestContent{}, ErrInvalidLengthHeader
	}

	return RequestContent{Length: length, Digest: value}, nil
}

// VerifyBody recomputes the SHA-256 of the received bytes and matches it
// byte-for-byte against the declared digest. Returns the expected and actual
// base64 digests on mismatch so the caller can report both.
func (c RequestContent) VerifyBody(body []byte) (expected, actual string, ok bool) {
	sum := sha256.Sum256(body)
	actual = base64.StdEncoding.EncodeToString(sum[:])
	return c.Digest, actual, actual == c.Digest
}

// SignatureHeaders carries the header material involved in request
// authentication.
type SignatureHeaders struct {
	Pubkey    string
	Signature string
	Content   *RequestContent
}

// Message produces the canonical message over which the signature is
// computed: the public key alone for bodyless requests, otherwise
// pubkey || content-length || digest with no separators.
func (h SignatureHeaders) Message() string {
	if h.Content == nil {
		return h.Pubkey
	}
	return h.Pubkey + strconv.Itoa(h.Content.Length) + h.Content.Digest
}

// Verify checks the detached signature against the canonical message
func (h SignatureHeaders) Verify() error {
	if h.Signature == "" {
		return ErrMissingSigningKey
	}
	if !VerifySignature(h.Pubkey, h.Message(), h.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifySignature reports whether signature is a valid ed25519 signature by
// the hex-encoded public key over the message. Malformed key or signature
// material verifies as false.
func VerifySignature(pubkey, message, signature string) bool {
	key, err := hex.DecodeString(pubkey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(key), []byte(message), sig)
}

// Sign produces the hex-encoded detached signature of a canonical message.
// Server-side this is only exercised by tests; contributors sign client-side.
func Sign(key ed25519.PrivateKey, message string) string {
	return hex.EncodeToString(ed25519.Sign(key, []byte(message)))
}
