// Copyright 2025 Certen Protocol
//
// Coordinator state machine tests

package coordinator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// acceptAll is a verifier that always succeeds
type acceptAll struct{}

func (acceptAll) Verify(Task, []byte, []byte, []byte) error { return nil }

// rejectAll is a verifier that always fails
type rejectAll struct{}

func (rejectAll) Verify(Task, []byte, []byte, []byte) error {
	return errors.New("bad contribution")
}

// panicking is a verifier kernel that panics instead of returning
type panicking struct{}

func (panicking) Verify(Task, []byte, []byte, []byte) error {
	panic("kernel exploded")
}

func newTestCoordinator(t *testing.T, v Verifier) *Coordinator {
	t.Helper()

	storage, err := NewDiskStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	c, err := New(Options{
		Storage:          storage,
		Verifier:         v,
		HeartbeatTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("failed to initialize coordinator: %v", err)
	}
	return c
}

// contribute walks a participant through lock and contribution
func contribute(t *testing.T, c *Coordinator, p Participant) {
	t.Helper()

	_, locators, err := c.TryLock(p)
	if err != nil {
		t.Fatalf("failed to lock chunk: %v", err)
	}
	err = c.ContributeChunk(p, locators.Response, locators.ResponseSignature,
		[]byte("contribution bytes"), []byte(`{"public_key":"pk","signature":"sig"}`))
	if err != nil {
		t.Fatalf("failed to contribute chunk: %v", err)
	}
}

func TestAddToQueue(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")

	if err := c.AddToQueue(p, "10.0.0.1", 0, 10); err != nil {
		t.Fatalf("failed to add to queue: %v", err)
	}
	if !c.IsQueueContributor(p) {
		t.Error("expected participant to be queued")
	}
	if c.NumberOfQueueContributors() != 1 {
		t.Errorf("queue length mismatch: got %d, want 1", c.NumberOfQueueContributors())
	}
}

func TestAddToQueue_Duplicate(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")

	if err := c.AddToQueue(p, "", 0, 10); err != nil {
		t.Fatalf("failed to add to queue: %v", err)
	}
	if err := c.AddToQueue(p, "", 0, 10); !errors.Is(err, ErrAlreadyInQueue) {
		t.Fatalf("expected ErrAlreadyInQueue, got %v", err)
	}
	if c.NumberOfQueueContributors() != 1 {
		t.Error("duplicate admit must leave state unchanged")
	}
}

func TestAddToQueue_AddressRateLimited(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})

	if err := c.AddToQueue(NewContributor("c1"), "10.0.0.1", 0, 10); err != nil {
		t.Fatalf("failed to add first participant: %v", err)
	}
	err := c.AddToQueue(NewContributor("c2"), "10.0.0.1", 0, 10)
	if !errors.Is(err, ErrAddressRateLimited) {
		t.Fatalf("expected ErrAddressRateLimited, got %v", err)
	}
}

func TestUpdate_PromotesFirstContributor(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")

	if err := c.AddToQueue(p, "", 0, 10); err != nil {
		t.Fatalf("failed to add to queue: %v", err)
	}
	if err := c.Update(); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	if !c.IsCurrentContributor(p) {
		t.Error("expected participant to be promoted")
	}
	if c.CurrentRoundHeight() != 1 {
		t.Errorf("round height mismatch: got %d, want 1", c.CurrentRoundHeight())
	}
}

func TestTryLock(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")
	c.AddToQueue(p, "", 0, 10)
	c.Update()

	_, locators, err := c.TryLock(p)
	if err != nil {
		t.Fatalf("failed to lock chunk: %v", err)
	}

	want := ContributionLocator{Round: 1, Chunk: 0, Contribution: 0, Verified: true}
	if locators.Challenge != want {
		t.Errorf("challenge locator mismatch: got %+v, want %+v", locators.Challenge, want)
	}
	if locators.Challenge.Path() != "round_1/chunk_0/contribution_0.verified" {
		t.Errorf("challenge path mismatch: got %s", locators.Challenge.Path())
	}
	if locators.Response.Path() != "round_1/chunk_0/contribution_1.unverified" {
		t.Errorf("response path mismatch: got %s", locators.Response.Path())
	}

	// A second lock is a distinct failure
	if _, _, err := c.TryLock(p); !errors.Is(err, ErrChunkAlreadyLocked) {
		t.Fatalf("expected ErrChunkAlreadyLocked, got %v", err)
	}
}

func TestTryLock_NotCurrent(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	if _, _, err := c.TryLock(NewContributor("stranger")); !errors.Is(err, ErrNotCurrentContributor) {
		t.Fatalf("expected ErrNotCurrentContributor, got %v", err)
	}
}

func TestGetChallenge(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})

	challenge, err := c.GetChallenge(1)
	if err != nil {
		t.Fatalf("failed to read the initial challenge: %v", err)
	}
	if len(challenge) == 0 {
		t.Error("expected a non-empty initialization artifact")
	}

	if _, err := c.GetChallenge(42); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestContributeChunk_RequiresLock(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")
	c.AddToQueue(p, "", 0, 10)
	c.Update()

	err := c.ContributeChunk(p, ResponseLocator(1), ResponseSignatureLocator(1), []byte("x"), []byte("y"))
	if !errors.Is(err, ErrChunkNotLocked) {
		t.Fatalf("expected ErrChunkNotLocked, got %v", err)
	}
}

func TestContributeChunk_WrongRoundLocator(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")
	c.AddToQueue(p, "", 0, 10)
	c.Update()
	c.TryLock(p)

	err := c.ContributeChunk(p, ResponseLocator(7), ResponseSignatureLocator(7), []byte("x"), []byte("y"))
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestHappyPath_RoundAdvances(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	c1 := NewContributor("c1")
	c2 := NewContributor("c2")

	c.AddToQueue(c1, "10.0.0.1", 0, 10)
	c.AddToQueue(c2, "10.0.0.2", 0, 10)
	if err := c.Update(); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	contribute(t, c, c1)
	if !c.IsFinishedContributor(c1) {
		t.Error("expected contributor to be finished")
	}

	pending := c.PendingVerifications()
	if len(pending) != 1 {
		t.Fatalf("pending count mismatch: got %d, want 1", len(pending))
	}
	if pending[0] != (Task{Round: 1, Chunk: 0, Contribution: 1}) {
		t.Errorf("pending task mismatch: got %+v", pending[0])
	}

	if err := c.DefaultVerify(pending[0]); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}

	// The verified artifact is the next round's challenge
	if _, err := c.GetChallenge(2); err != nil {
		t.Fatalf("expected the round 2 challenge to exist: %v", err)
	}

	if err := c.Update(); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if c.CurrentRoundHeight() != 2 {
		t.Errorf("round height mismatch: got %d, want 2", c.CurrentRoundHeight())
	}
	if !c.IsCurrentContributor(c2) {
		t.Error("expected the next queued contributor to be promoted")
	}
}

func TestVerificationFailure_ResetAndBan(t *testing.T) {
	c := newTestCoordinator(t, rejectAll{})
	c1 := NewContributor("c1")
	c2 := NewContributor("c2")

	c.AddToQueue(c1, "10.0.0.1", 0, 10)
	c.AddToQueue(c2, "10.0.0.2", 0, 10)
	c.Update()
	contribute(t, c, c1)

	task := c.PendingVerifications()[0]
	if err := c.DefaultVerify(task); err == nil {
		t.Fatal("expected verification to fail")
	}

	// A finished contributor cannot be banned before the reset
	if err := c.BanParticipant(c1); !errors.Is(err, ErrCannotBanFinished) {
		t.Fatalf("expected ErrCannotBanFinished, got %v", err)
	}

	if err := c.ResetRound(); err != nil {
		t.Fatalf("failed to reset round: %v", err)
	}
	if err := c.BanParticipant(c1); err != nil {
		t.Fatalf("failed to ban after reset: %v", err)
	}
	if !c.IsBannedParticipant(c1) {
		t.Error("expected contributor to be banned")
	}

	// The invalid artifact is gone and the round is reused
	if len(c.PendingVerifications()) != 0 {
		t.Error("expected no pending verification after reset")
	}
	if err := c.Update(); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if c.CurrentRoundHeight() != 1 {
		t.Errorf("round height must not advance after a reset: got %d", c.CurrentRoundHeight())
	}
	if !c.IsCurrentContributor(c2) {
		t.Error("expected the next queued contributor to redo the round")
	}
}

func TestVerifierPanic_IsRecovered(t *testing.T) {
	c := newTestCoordinator(t, panicking{})
	c1 := NewContributor("c1")

	c.AddToQueue(c1, "", 0, 10)
	c.Update()
	contribute(t, c, c1)

	task := c.PendingVerifications()[0]
	err := c.DefaultVerify(task)
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
}

func TestHeartbeat(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")

	if err := c.Heartbeat(p); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}

	c.AddToQueue(p, "", 0, 10)
	if err := c.Heartbeat(p); err != nil {
		t.Fatalf("failed to heartbeat: %v", err)
	}
}

func TestUpdate_DropsUnresponsive(t *testing.T) {
	storage, err := NewDiskStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	c, err := New(Options{
		Storage:          storage,
		Verifier:         acceptAll{},
		HeartbeatTimeout: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	p := NewContributor("c1")
	c.AddToQueue(p, "", 0, 10)
	time.Sleep(10 * time.Millisecond)

	if err := c.Update(); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if !c.IsDroppedParticipant(p) {
		t.Error("expected silent participant to be dropped")
	}
	if c.IsQueueContributor(p) {
		t.Error("expected dropped participant to leave the queue")
	}

	// A dropped participant cannot re-join
	if err := c.AddToQueue(p, "", 0, 10); !errors.Is(err, ErrDroppedParticipant) {
		t.Fatalf("expected ErrDroppedParticipant, got %v", err)
	}
}

func TestPromotion_Ordering(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})

	// Identical join instants resolve by identity for determinism
	early := NewContributor("aaa")
	late := NewContributor("zzz")
	c.AddToQueue(late, "10.0.0.1", 0, 10)
	c.AddToQueue(early, "10.0.0.2", 0, 10)

	// Force identical timestamps
	c.mu.Lock()
	now := time.Now()
	for _, entry := range c.queue {
		entry.JoinedAt = now
	}
	c.mu.Unlock()

	c.Update()
	if !c.IsCurrentContributor(early) {
		t.Error("expected lexicographically first identity to win the tie")
	}
}

func TestShutdown(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})
	p := NewContributor("c1")

	if err := c.Shutdown(); err != nil {
		t.Fatalf("failed to shut down: %v", err)
	}

	if err := c.AddToQueue(p, "", 0, 10); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	if err := c.Update(); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	if err := c.Shutdown(); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown on double shutdown, got %v", err)
	}
}

func TestStateSnapshot_Restores(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewDiskStorage(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	c, err := New(Options{Storage: storage, Verifier: acceptAll{}, HeartbeatTimeout: time.Hour})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	p := NewContributor("c1")
	c.AddToQueue(p, "", 0, 10)
	c.Update()
	contribute(t, c, p)
	c.DefaultVerify(c.PendingVerifications()[0])

	// A fresh coordinator over the same storage resumes at the same round
	restored, err := New(Options{Storage: storage, Verifier: acceptAll{}, HeartbeatTimeout: time.Hour})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	if err := restored.Initialize(); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
	if restored.CurrentRoundHeight() != 1 {
		t.Errorf("restored round mismatch: got %d, want 1", restored.CurrentRoundHeight())
	}
	if !restored.IsFinishedContributor(p) {
		t.Error("expected finished contributor to survive the restart")
	}
}

func TestWriteContributionInfo_Summary(t *testing.T) {
	c := newTestCoordinator(t, acceptAll{})

	info := ContributionInfo{
		PublicKey:        "c1",
		CeremonyRound:    1,
		ContributionHash: "00aa",
	}
	if err := c.WriteContributionInfo(info); err != nil {
		t.Fatalf("failed to write contribution info: %v", err)
	}

	data, err := c.ContributionsSummary()
	if err != nil {
		t.Fatalf("failed to read summary: %v", err)
	}

	var summary ContributionsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if len(summary.Contributions) != 1 {
		t.Fatalf("summary size mismatch: got %d, want 1", len(summary.Contributions))
	}
	if summary.Contributions[0].PublicKey != "c1" {
		t.Errorf("summary entry mismatch: %+v", summary.Contributions[0])
	}
	if summary.AttestationRoot == "" {
		t.Error("expected a non-empty attestation root")
	}

	// Re-posting for the same round (rollback) replaces the entry
	info.ContributionHash = "00bb"
	if err := c.WriteContributionInfo(info); err != nil {
		t.Fatalf("failed to rewrite contribution info: %v", err)
	}
	data, _ = c.ContributionsSummary()
	json.Unmarshal(data, &summary)
	if len(summary.Contributions) != 1 {
		t.Fatalf("rollback must replace the round entry, got %d entries", len(summary.Contributions))
	}
	if summary.Contributions[0].ContributionHash != "00bb" {
		t.Errorf("expected replaced hash, got %s", summary.Contributions[0].ContributionHash)
	}
}
