// Copyright 2025 Certen Protocol
//
// Contribution verification. The verifier is pluggable; the default
// implementation performs structural validation of the artifact: the
// hash-chain binding to the previous challenge, the detached ed25519
// signature, and deserialization of the leading BLS12-381 group element.

package coordinator

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/certen/ceremony-coordinator/pkg/auth"
)

// challengeHashSize is the length of the previous-challenge hash that opens
// every contribution file
const challengeHashSize = sha512.Size

// Verification errors
var (
	// ErrContributionTooShort is returned when the artifact cannot hold the
	// challenge hash header and one group element
	ErrContributionTooShort = errors.New("contribution is too short")

	// ErrChallengeHashMismatch is returned when the artifact is not bound to
	// the round's challenge
	ErrChallengeHashMismatch = errors.New("contribution is not based on the round's challenge")

	// ErrInvalidContributionSignature is returned when the detached
	// signature does not verify
	ErrInvalidContributionSignature = errors.New("contribution signature is invalid")

	// ErrMalformedContribution is returned when the artifact's group
	// elements fail deserialization
	ErrMalformedContribution = errors.New("contribution holds malformed group elements")
)

// ContributionSignature is the detached signature document uploaded beside
// the contribution. The signature covers the hex-encoded SHA-256 of the
// contribution bytes.
type ContributionSignature struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// Verifier checks an uploaded contribution against its round challenge.
// Implementations return a tagged error instead of panicking; panics from
// a verification kernel are recovered at the call boundary.
type Verifier interface {
	Verify(task Task, challenge, contribution, signature []byte) error
}

// DefaultVerifier is the built-in structural verifier
type DefaultVerifier struct {
	logger *log.Logger
}

// NewDefaultVerifier creates the built-in verifier
func NewDefaultVerifier(logger *log.Logger) *DefaultVerifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[Verifier] ", log.LstdFlags)
	}
	return &DefaultVerifier{logger: logger}
}

// Verify checks the artifact structure: header hash, signature, group
// element.
func (v *DefaultVerifier) Verify(task Task, challenge, contribution, signature []byte) error {
	if len(contribution) < challengeHashSize+bls12381.SizeOfG1AffineCompressed {
		return ErrContributionTooShort
	}

	// The contribution must open with the SHA-512 of the challenge it
	// responds to
	challengeHash := sha512.Sum512(challenge)
	if !bytes.Equal(contribution[:challengeHashSize], challengeHash[:]) {
		return ErrChallengeHashMismatch
	}

	var sig ContributionSignature
	if err := json.Unmarshal(signature, &sig); err != nil {
		return fmt.Errorf("parsing contribution signature: %w", err)
	}

	contributionHash := sha256.Sum256(contribution)
	message := hex.EncodeToString(contributionHash[:])
	if !auth.VerifySignature(sig.PublicKey, message, sig.Signature) {
		return ErrInvalidContributionSignature
	}

	var point bls12381.G1Affine
	if _, err := point.SetBytes(contribution[challengeHashSize : challengeHashSize+bls12381.SizeOfG1AffineCompressed]); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedContribution, err)
	}

	v.logger.Printf("Verified contribution for task %s", task)
	return nil
}

// safeVerify invokes the verifier and converts a panic from the kernel into
// a verification failure.
func safeVerify(v Verifier, task Task, challenge, contribution, signature []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panicked: %v", r)
		}
	}()
	return v.Verify(task, challenge, contribution, signature)
}
