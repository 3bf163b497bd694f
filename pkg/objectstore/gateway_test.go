// Copyright 2025 Certen Protocol
//
// Object-store key schema and retry classification tests

package objectstore

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

func TestKeySchema(t *testing.T) {
	if got := ChallengeKey(1); got != "round_1/chunk_0/contribution_0.verified" {
		t.Errorf("challenge key mismatch: %s", got)
	}
	if got := ContributionKey(3); got != "round_3/chunk_0/contribution_1.unverified" {
		t.Errorf("contribution key mismatch: %s", got)
	}
	if got := ContributionSignatureKey(3); got != "round_3/chunk_0/contribution_1.unverified.signature" {
		t.Errorf("signature key mismatch: %s", got)
	}
}

func TestTokensKey(t *testing.T) {
	if got := TokensKey(false); got != "master/tokens.zip" {
		t.Errorf("master tokens key mismatch: %s", got)
	}
	if got := TokensKey(true); got != "production/tokens.zip" {
		t.Errorf("production tokens key mismatch: %s", got)
	}
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("bucket error"),
		},
	}
}

func TestIsTransient(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 504} {
		if !IsTransient(responseError(status)) {
			t.Errorf("status %d: expected transient", status)
		}
	}

	for _, status := range []int{400, 403, 404} {
		if IsTransient(responseError(status)) {
			t.Errorf("status %d: expected permanent", status)
		}
	}

	if IsTransient(errors.New("not an http error")) {
		t.Error("plain errors must not be transient")
	}
}

func TestIsTransient_Wrapped(t *testing.T) {
	err := fmt.Errorf("get object: %w", responseError(503))
	if !IsTransient(err) {
		t.Error("expected wrapped transient error to classify as transient")
	}
}
