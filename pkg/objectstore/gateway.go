// Copyright 2025 Certen Protocol
//
// Object-Store Gateway
// Maps well-known keys to opaque byte blobs on S3. Bulk data never streams
// through the coordinator: contributors exchange artifacts via short-lived
// presigned URLs, and the gateway itself only fetches objects when
// server-side processing needs the bytes.

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
)

const (
	// backoffInitial is the first retry delay; it doubles per attempt
	backoffInitial = 100 * time.Millisecond

	// maxRetries bounds the retry budget at roughly 25s cumulative
	maxRetries = 8
)

// GatewayConfig holds configuration for the S3 gateway
type GatewayConfig struct {
	Bucket string
	Region string

	// Endpoint overrides the S3 endpoint for local stacks. When set, the
	// gateway switches to path-style addressing and uses static test
	// credentials in place of the default credential chain.
	Endpoint string

	// Production selects the production/ prefix of the token archive
	Production bool

	// PresignLifetime bounds the validity of issued URLs
	PresignLifetime time.Duration
}

// Gateway issues presigned URLs and performs blocking uploads and downloads
// with retry against the ceremony bucket.
type Gateway struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     GatewayConfig
	logger  *log.Logger

	// onRetry is invoked once per retried transient, for metrics
	onRetry func(op string)
}

// NewGateway builds the S3 client stack from the ambient AWS configuration.
// The SDK's own retrier is disabled: the gateway applies the ceremony's
// retry policy itself.
func NewGateway(ctx context.Context, cfg GatewayConfig, logger *log.Logger) (*Gateway, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[ObjectStore] ", log.LstdFlags)
	}
	if cfg.PresignLifetime <= 0 {
		cfg.PresignLifetime = 10 * time.Minute
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("ceremony", "ceremony", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Gateway{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// SetRetryHook installs a callback fired on every retried transient
func (g *Gateway) SetRetryHook(hook func(op string)) {
	g.onRetry = hook
}

// GetChallengeURL returns a presigned GET URL for the challenge key if the
// object already exists in the bucket (e.g. after a round rollback), and
// ok=false otherwise.
func (g *Gateway) GetChallengeURL(ctx context.Context, key string) (string, bool) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", false
	}

	url, err := g.presignGet(ctx, key)
	if err != nil {
		return "", false
	}
	return url, true
}

// UploadChallenge uploads the challenge bytes under the given key and
// returns a presigned GET URL for it. Duplicate uploads of the same round's
// challenge are tolerated by the bucket.
func (g *Gateway) UploadChallenge(ctx context.Context, key string, challenge []byte) (string, error) {
	err := g.retry(ctx, "upload challenge", func() error {
		_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(challenge),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upload of challenge failed: %w", err)
	}

	return g.presignGet(ctx, key)
}

// ContributionURLs returns presigned PUT URLs for the round's contribution
// and its detached signature. URLs are never cached: they are regenerated on
// every request because their lifetime is short.
func (g *Gateway) ContributionURLs(ctx context.Context, round uint64) (string, string, error) {
	contribURL, err := g.presignPut(ctx, ContributionKey(round))
	if err != nil {
		return "", "", err
	}
	sigURL, err := g.presignPut(ctx, ContributionSignatureKey(round))
	if err != nil {
		return "", "", err
	}
	return contribURL, sigURL, nil
}

// GetContribution downloads the round's unverified contribution and its
// signature from the bucket.
func (g *Gateway) GetContribution(ctx context.Context, round uint64) ([]byte, []byte, error) {
	contribution, err := g.getObject(ctx, ContributionKey(round))
	if err != nil {
		return nil, nil, fmt.Errorf("download of contribution failed: %w", err)
	}
	if len(contribution) == 0 {
		return nil, nil, ErrEmptyContribution
	}

	signature, err := g.getObject(ctx, ContributionSignatureKey(round))
	if err != nil {
		return nil, nil, fmt.Errorf("download of contribution signature failed: %w", err)
	}
	if len(signature) == 0 {
		return nil, nil, ErrEmptyContributionSignature
	}

	return contribution, signature, nil
}

// PublishContributorsSummary uploads the public contributors.json document.
// The old object is deleted first so downstream triggers observing object
// creation re-fire.
func (g *Gateway) PublishContributorsSummary(ctx context.Context, summary []byte) error {
	err := g.retry(ctx, "delete contributors.json", func() error {
		_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(ContributorsKey),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete of contributors summary failed: %w", err)
	}

	err = g.retry(ctx, "upload contributors.json", func() error {
		_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(ContributorsKey),
			Body:   bytes.NewReader(summary),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("upload of contributors summary failed: %w", err)
	}

	return nil
}

// GetTokens downloads the compressed token archive
func (g *Gateway) GetTokens(ctx context.Context) ([]byte, error) {
	return g.getObject(ctx, TokensKey(g.cfg.Production))
}

// getObject downloads an object with the transient retry policy
func (g *Gateway) getObject(ctx context.Context, key string) ([]byte, error) {
	var buffer []byte

	err := g.retry(ctx, "get "+key, func() error {
		out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		buffer, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	return buffer, nil
}

func (g *Gateway) presignGet(ctx context.Context, key string) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.cfg.PresignLifetime))
	if err != nil {
		return "", fmt.Errorf("presigning GET %s: %w", key, err)
	}
	return req.URL, nil
}

func (g *Gateway) presignPut(ctx context.Context, key string) (string, error) {
	req, err := g.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.cfg.PresignLifetime))
	if err != nil {
		return "", fmt.Errorf("presigning PUT %s: %w", key, err)
	}
	return req.URL, nil
}

// retry runs fn under the ceremony retry policy: exponential backoff from
// 100ms doubling per attempt, up to 8 retries, and only for transient
// responses. Any other error is surfaced immediately.
func (g *Gateway) retry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = backoffInitial
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	attempt := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		g.logger.Printf("Retrying s3 %s request because of: %v", op, err)
		if g.onRetry != nil {
			g.onRetry(op)
		}
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, op, err)
	}
	return err
}

// IsTransient reports whether the error is a retryable bucket response
// (HTTP 429, 500, 502, 503 or 504).
func IsTransient(err error) bool {
	var responseErr *awshttp.ResponseError
	if !errors.As(err, &responseErr) {
		return false
	}

	switch responseErr.HTTPStatusCode() {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
