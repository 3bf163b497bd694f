// Copyright 2025 Certen Protocol
//
// Periodic Driver
// A single recurring task that verifies pending contributions, advances the
// round and drops unresponsive participants without external input.

package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/certen/ceremony-coordinator/pkg/coordinator"
	"github.com/certen/ceremony-coordinator/pkg/metrics"
	"github.com/certen/ceremony-coordinator/pkg/objectstore"
)

// Driver runs the periodic ceremony maintenance tick
type Driver struct {
	coordinator *coordinator.Coordinator
	gateway     *objectstore.Gateway
	metrics     *metrics.Metrics
	interval    time.Duration
	logger      *log.Logger

	// tickMu makes the tick non-reentrant: a new tick is skipped while the
	// previous one is still running
	tickMu sync.Mutex

	// lastDropped tracks the drop count already reported to metrics
	lastDropped int
}

// NewDriver creates the periodic driver
func NewDriver(c *coordinator.Coordinator, gateway *objectstore.Gateway, m *metrics.Metrics, interval time.Duration, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(log.Writer(), "[Driver] ", log.LstdFlags)
	}
	return &Driver{
		coordinator: c,
		gateway:     gateway,
		metrics:     m,
		interval:    interval,
		logger:      logger,
	}
}

// Run ticks until the context is cancelled
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.tickMu.TryLock() {
				d.logger.Printf("Skipping tick: previous tick still running")
				continue
			}
			d.tick(ctx)
			d.tickMu.Unlock()
		}
	}
}

// tick performs one maintenance pass: verify pending contributions, then
// advance the round and drop unresponsive participants.
func (d *Driver) tick(ctx context.Context) {
	if err := d.VerifyPending(ctx); err != nil {
		d.logger.Printf("Error while verifying pending contributions: %v", err)
	}

	if err := d.coordinator.Update(); err != nil {
		if err != coordinator.ErrShutdown {
			d.logger.Printf("Error while updating the coordinator: %v", err)
		}
	}

	if d.metrics != nil {
		d.metrics.RoundHeight.Set(float64(d.coordinator.CurrentRoundHeight()))
		d.metrics.QueueLength.Set(float64(d.coordinator.NumberOfQueueContributors()))

		if dropped := d.coordinator.NumberOfDroppedParticipants(); dropped > d.lastDropped {
			d.metrics.ParticipantsDropped.Add(float64(dropped - d.lastDropped))
			d.lastDropped = dropped
		}
	}
}

// VerifyPending verifies every pending contribution. On success the public
// summary is re-published. On failure the round is reset and the
// contributor who produced the invalid artifact is banned; the ban must
// follow the reset because a finished contributor is not ban-eligible.
func (d *Driver) VerifyPending(ctx context.Context) error {
	for _, task := range d.coordinator.PendingVerifications() {
		if err := d.coordinator.DefaultVerify(task); err != nil {
			d.logger.Printf("Error while verifying a contribution: %v. Restarting the round...", err)
			if d.metrics != nil {
				d.metrics.ContributionsFailed.Inc()
			}

			finished := d.coordinator.CurrentRoundFinishedContributors()
			if err := d.coordinator.ResetRound(); err != nil {
				return err
			}
			if len(finished) > 0 {
				if err := d.coordinator.BanParticipant(finished[0]); err != nil {
					return err
				}
				if d.metrics != nil {
					d.metrics.ParticipantsBanned.Inc()
				}
			}
			continue
		}

		if d.metrics != nil {
			d.metrics.ContributionsVerified.Inc()
		}

		d.publishSummary(ctx)
	}

	return nil
}

// publishSummary pushes the current contributors.json to the bucket.
// Publication failures are logged and retried on the next verification.
func (d *Driver) publishSummary(ctx context.Context) {
	summary, err := d.coordinator.ContributionsSummary()
	if err != nil {
		d.logger.Printf("No contributions summary to publish yet: %v", err)
		return
	}

	if err := d.gateway.PublishContributorsSummary(ctx, summary); err != nil {
		d.logger.Printf("Error while publishing the contributors summary: %v", err)
	}
}
