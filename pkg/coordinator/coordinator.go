// Copyright 2025 Certen Protocol
//
// Coordinator State
// The authoritative round/queue/participant state machine of the ceremony.
// Every state-changing operation is serialized behind a single
// readers-writer lock; long I/O (object-store downloads) happens before the
// write lock is taken.

package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueueEntry tracks an admitted participant waiting for promotion
type QueueEntry struct {
	Participant   Participant `json:"participant"`
	Address       string      `json:"address,omitempty"`
	Reliability   uint8       `json:"reliability"`
	AssignedRound *uint64     `json:"assigned_round,omitempty"`
	Cohort        int         `json:"cohort"`
	JoinedAt      time.Time   `json:"joined_at"`
}

// currentSlot is the single contributor slot of the round in progress
type currentSlot struct {
	Entry    QueueEntry `json:"entry"`
	Locked   bool       `json:"locked"`
	LockID   string     `json:"lock_id,omitempty"`
	LockedAt time.Time  `json:"locked_at,omitempty"`
}

// Options configures a Coordinator
type Options struct {
	Storage  *DiskStorage
	Verifier Verifier

	// HeartbeatTimeout is how long a participant may stay silent before the
	// next tick drops it
	HeartbeatTimeout time.Duration

	// InitialReliability is the reputation given at admission
	InitialReliability uint8

	Logger *log.Logger
}

// Coordinator owns all mutable ceremony state
type Coordinator struct {
	mu sync.RWMutex

	storage  *DiskStorage
	verifier Verifier
	opts     Options
	logger   *log.Logger

	roundHeight   uint64
	roundComplete bool

	queue      []*QueueEntry
	current    *currentSlot
	finished   map[uint64][]Participant
	dropped    map[string]Participant
	banned     map[string]Participant
	heartbeats map[string]time.Time
	pending    map[Task]Participant

	summary ContributionsSummary

	shutdown bool
}

// New creates a coordinator over the given storage and verifier
func New(opts Options) (*Coordinator, error) {
	if opts.Storage == nil {
		return nil, errors.New("coordinator requires a storage layer")
	}
	if opts.Verifier == nil {
		opts.Verifier = NewDefaultVerifier(opts.Logger)
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = 120 * time.Second
	}
	if opts.InitialReliability == 0 {
		opts.InitialReliability = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[Coordinator] ", log.LstdFlags)
	}

	return &Coordinator{
		storage:    opts.Storage,
		verifier:   opts.Verifier,
		opts:       opts,
		logger:     logger,
		finished:   make(map[uint64][]Participant),
		dropped:    make(map[string]Participant),
		banned:     make(map[string]Participant),
		heartbeats: make(map[string]time.Time),
		pending:    make(map[Task]Participant),
	}, nil
}

// Initialize restores the persisted state snapshot when one exists, or
// starts a fresh ceremony by writing the initial challenge for round 1.
// The round height starts at 0: initialization counts as round 0's verified
// output.
func (c *Coordinator) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage.Exists(stateFile) {
		if err := c.restoreLocked(); err != nil {
			return fmt.Errorf("restoring coordinator state: %w", err)
		}
		c.logger.Printf("Restored ceremony state at round %d", c.roundHeight)
	} else {
		c.roundHeight = 0
		c.roundComplete = true
	}

	initial := ChallengeLocator(1)
	if !c.storage.Exists(initial.Path()) {
		if err := c.storage.Set(initial.Path(), initialChallenge()); err != nil {
			return fmt.Errorf("writing initial challenge: %w", err)
		}
		c.logger.Printf("Wrote initialization artifact at %s", initial.Path())
	}

	c.sweepOrphansLocked()

	return c.saveStateLocked()
}

// AddToQueueChecks verifies the preconditions of admission without mutating
// state. Used by the request pipeline's role guard for joining participants.
func (c *Coordinator) AddToQueueChecks(p Participant, address string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admissionChecksLocked(p, address)
}

func (c *Coordinator) admissionChecksLocked(p Participant, address string) error {
	if c.shutdown {
		return ErrShutdown
	}
	if _, ok := c.banned[p.key()]; ok {
		return ErrBannedParticipant
	}
	if _, ok := c.dropped[p.key()]; ok {
		return ErrDroppedParticipant
	}
	if c.inQueueLocked(p) {
		return ErrAlreadyInQueue
	}
	if c.isCurrentLocked(p) || c.isFinishedLocked(p) {
		return ErrAlreadyContributing
	}
	if address != "" {
		for _, entry := range c.queue {
			if entry.Address == address {
				return ErrAddressRateLimited
			}
		}
	}
	return nil
}

// AddToQueue admits a participant with the given source address, cohort and
// reliability score. A second admit for the same participant fails with a
// distinct error and leaves state unchanged.
func (c *Coordinator) AddToQueue(p Participant, address string, cohort int, reliability uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admissionChecksLocked(p, address); err != nil {
		return err
	}

	entry := &QueueEntry{
		Participant: p,
		Address:     address,
		Reliability: reliability,
		Cohort:      cohort,
		JoinedAt:    time.Now(),
	}
	c.queue = append(c.queue, entry)
	c.heartbeats[p.key()] = time.Now()

	c.logger.Printf("Added %s to the queue (cohort %d)", p, cohort)
	return c.saveStateLocked()
}

// TryLock locks the round's chunk for the current contributor and returns
// the locators of the previous artifact and of the expected new artifact.
func (c *Coordinator) TryLock(p Participant) (string, LockedLocators, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return "", LockedLocators{}, ErrShutdown
	}
	if !c.isCurrentLocked(p) {
		return "", LockedLocators{}, ErrNotCurrentContributor
	}
	if c.current.Locked {
		return "", LockedLocators{}, ErrChunkAlreadyLocked
	}

	c.current.Locked = true
	c.current.LockID = uuid.NewString()
	c.current.LockedAt = time.Now()
	c.heartbeats[p.key()] = time.Now()

	locators := LockedLocators{
		Challenge:         ChallengeLocator(c.roundHeight),
		Response:          ResponseLocator(c.roundHeight),
		ResponseSignature: ResponseSignatureLocator(c.roundHeight),
	}

	c.logger.Printf("Locked chunk of round %d for %s (lock %s)", c.roundHeight, p, c.current.LockID)
	if err := c.saveStateLocked(); err != nil {
		return "", LockedLocators{}, err
	}
	return c.current.LockID, locators, nil
}

// GetChallenge reads the round's verified starting artifact from storage
func (c *Coordinator) GetChallenge(round uint64) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locator := ChallengeLocator(round)
	if !c.storage.Exists(locator.Path()) {
		return nil, fmt.Errorf("%w: %d", ErrChallengeNotFound, round)
	}
	return c.storage.Get(locator.Path())
}

// ContributeChunk persists the downloaded contribution and its signature at
// the given locators and advances the contributor to finished. The caller
// performs the object-store download before invoking this, keeping bulk I/O
// outside the write lock.
func (c *Coordinator) ContributeChunk(p Participant, loc ContributionLocator, sigLoc ContributionSignatureLocator, contribution, signature []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if !c.isCurrentLocked(p) {
		return ErrNotCurrentContributor
	}
	if !c.current.Locked {
		return ErrChunkNotLocked
	}
	if loc.Round != c.roundHeight || sigLoc.Round != c.roundHeight {
		return fmt.Errorf("%w: locator round does not match the current round %d", ErrInvariantViolation, c.roundHeight)
	}

	if err := c.storage.Set(loc.Path(), contribution); err != nil {
		return err
	}
	if err := c.storage.Set(sigLoc.Path(), signature); err != nil {
		return err
	}

	entry := c.current.Entry
	c.current = nil
	c.finished[c.roundHeight] = append(c.finished[c.roundHeight], entry.Participant)
	c.pending[Task{Round: c.roundHeight, Chunk: 0, Contribution: 1}] = entry.Participant
	delete(c.heartbeats, p.key())

	c.logger.Printf("Contribution of round %d received from %s, pending verification", c.roundHeight, p)
	return c.saveStateLocked()
}

// Heartbeat refreshes the participant's liveness timestamp
func (c *Coordinator) Heartbeat(p Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if _, ok := c.banned[p.key()]; ok {
		return ErrBannedParticipant
	}
	if _, ok := c.dropped[p.key()]; ok {
		return ErrDroppedParticipant
	}
	if !c.inQueueLocked(p) && !c.isCurrentLocked(p) && !c.isFinishedLocked(p) {
		return ErrUnknownParticipant
	}

	c.heartbeats[p.key()] = time.Now()
	return nil
}

// Update advances the ceremony: unresponsive participants are dropped, and
// when the round slot is free with no outstanding verification the next
// queued participant is promoted.
func (c *Coordinator) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}

	c.dropUnresponsiveLocked()

	if c.current == nil && len(c.pending) == 0 && len(c.queue) > 0 {
		c.promoteNextLocked()
	}

	return c.saveStateLocked()
}

// dropUnresponsiveLocked removes participants whose last heartbeat is older
// than the configured timeout.
func (c *Coordinator) dropUnresponsiveLocked() {
	deadline := time.Now().Add(-c.opts.HeartbeatTimeout)

	kept := c.queue[:0]
	for _, entry := range c.queue {
		if seen, ok := c.heartbeats[entry.Participant.key()]; ok && seen.Before(deadline) {
			c.dropLocked(entry.Participant)
			continue
		}
		kept = append(kept, entry)
	}
	c.queue = kept

	if c.current != nil {
		p := c.current.Entry.Participant
		if seen, ok := c.heartbeats[p.key()]; ok && seen.Before(deadline) {
			c.current = nil
			c.dropLocked(p)
		}
	}
}

func (c *Coordinator) dropLocked(p Participant) {
	c.dropped[p.key()] = p
	delete(c.heartbeats, p.key())
	c.logger.Printf("Dropped %s for missing heartbeats", p)
}

// promoteNextLocked moves the best queued entry into the contributor slot.
// Selection order: assigned round ascending with unassigned last, admission
// time ascending, then participant identity for determinism.
func (c *Coordinator) promoteNextLocked() {
	sort.SliceStable(c.queue, func(i, j int) bool {
		a, b := c.queue[i], c.queue[j]
		switch {
		case a.AssignedRound != nil && b.AssignedRound == nil:
			return true
		case a.AssignedRound == nil && b.AssignedRound != nil:
			return false
		case a.AssignedRound != nil && b.AssignedRound != nil && *a.AssignedRound != *b.AssignedRound:
			return *a.AssignedRound < *b.AssignedRound
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Participant.key() < b.Participant.key()
	})

	entry := c.queue[0]
	c.queue = c.queue[1:]

	if c.roundComplete {
		c.roundHeight++
		c.roundComplete = false
	}
	round := c.roundHeight
	entry.AssignedRound = &round

	c.current = &currentSlot{Entry: *entry}
	c.heartbeats[entry.Participant.key()] = time.Now()

	c.logger.Printf("Promoted %s to current contributor of round %d", entry.Participant, round)
}

// PendingVerifications returns the tasks whose unverified artifact awaits
// verification. For a given round at most one task exists.
func (c *Coordinator) PendingVerifications() []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tasks := make([]Task, 0, len(c.pending))
	for task := range c.pending {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Round < tasks[j].Round })
	return tasks
}

// DefaultVerify runs the built-in verifier on a pending task. On success the
// verified artifact becomes the next round's challenge and the round is
// marked complete. On failure the pending entry is kept and the error is
// returned: the caller resets the round and bans the producer.
func (c *Coordinator) DefaultVerify(task Task) error {
	// Read the artifacts before taking the write lock
	challenge, err := c.GetChallenge(task.Round)
	if err != nil {
		return err
	}

	c.mu.RLock()
	contribution, err := c.storage.Get(ResponseLocator(task.Round).Path())
	if err != nil {
		c.mu.RUnlock()
		return err
	}
	signature, err := c.storage.Get(ResponseSignatureLocator(task.Round).Path())
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := safeVerify(c.verifier, task, challenge, contribution, signature); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if _, ok := c.pending[task]; !ok {
		return fmt.Errorf("%w: task %s is not pending", ErrInvariantViolation, task)
	}

	next := ChallengeLocator(task.Round + 1)
	if err := c.storage.Set(next.Path(), contribution); err != nil {
		return err
	}

	delete(c.pending, task)
	c.roundComplete = true

	c.logger.Printf("Verified contribution of round %d, next challenge at %s", task.Round, next.Path())
	return c.saveStateLocked()
}

// CurrentRoundFinishedContributors returns the contributors that finished
// the current round.
func (c *Coordinator) CurrentRoundFinishedContributors() []Participant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Participant(nil), c.finished[c.roundHeight]...)
}

// ResetRound rolls the current round back to its pre-contribution state:
// the unverified artifact and its signature are removed, the round's
// finished contributors are forgotten and the pending verification is
// cleared. The round height does not move; the next promotion reuses it.
func (c *Coordinator) ResetRound() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}

	round := c.roundHeight
	if err := c.storage.Remove(ResponseLocator(round).Path()); err != nil {
		return err
	}
	if err := c.storage.Remove(ResponseSignatureLocator(round).Path()); err != nil {
		return err
	}

	for _, p := range c.finished[round] {
		delete(c.heartbeats, p.key())
	}
	delete(c.finished, round)
	delete(c.pending, Task{Round: round, Chunk: 0, Contribution: 1})
	c.roundComplete = false

	c.logger.Printf("Reset round %d to its pre-contribution state", round)
	return c.saveStateLocked()
}

// BanParticipant bans a participant from the ceremony. Finished
// contributors cannot be banned: a round reset must remove them from the
// finished set first.
func (c *Coordinator) BanParticipant(p Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if c.isFinishedLocked(p) {
		return ErrCannotBanFinished
	}

	kept := c.queue[:0]
	for _, entry := range c.queue {
		if entry.Participant == p {
			continue
		}
		kept = append(kept, entry)
	}
	c.queue = kept

	if c.isCurrentLocked(p) {
		c.current = nil
	}
	delete(c.dropped, p.key())
	delete(c.heartbeats, p.key())
	c.banned[p.key()] = p

	c.logger.Printf("Banned %s from the ceremony", p)
	return c.saveStateLocked()
}

// WriteContributionInfo persists the contributor-supplied metadata and folds
// it into the public contributions summary.
func (c *Coordinator) WriteContributionInfo(info ContributionInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding contribution info: %w", err)
	}
	if err := c.storage.Set(InfoPath(info.CeremonyRound), data); err != nil {
		return err
	}

	// Replace any previous entry for the same round (round rollback)
	entries := c.summary.Contributions[:0]
	for _, entry := range c.summary.Contributions {
		if entry.CeremonyRound != info.CeremonyRound {
			entries = append(entries, entry)
		}
	}
	c.summary.Contributions = append(entries, info.trim())
	sort.Slice(c.summary.Contributions, func(i, j int) bool {
		return c.summary.Contributions[i].CeremonyRound < c.summary.Contributions[j].CeremonyRound
	})

	encoded, err := c.summary.Encode()
	if err != nil {
		return fmt.Errorf("encoding contributions summary: %w", err)
	}
	return c.storage.SetContributionsSummary(encoded)
}

// ContributionsSummary returns the public summary document
func (c *Coordinator) ContributionsSummary() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage.GetContributionsSummary()
}

// CoordinatorState returns the persisted state snapshot
func (c *Coordinator) CoordinatorState() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage.GetCoordinatorState()
}

// Shutdown drains in-flight operations by taking the write lock, persists
// the final state and fails all further mutating operations.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	c.shutdown = true

	c.logger.Printf("Coordinator shut down at round %d", c.roundHeight)
	return c.saveStateLocked()
}

//
// -- STATUS QUERIES --
//

// CurrentRoundHeight returns the current round number
func (c *Coordinator) CurrentRoundHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roundHeight
}

// IsCurrentContributor reports whether p holds the round's contributor slot
func (c *Coordinator) IsCurrentContributor(p Participant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCurrentLocked(p)
}

// IsQueueContributor reports whether p waits in the queue
func (c *Coordinator) IsQueueContributor(p Participant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inQueueLocked(p)
}

// IsFinishedContributor reports whether p finished the current round
func (c *Coordinator) IsFinishedContributor(p Participant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isFinishedLocked(p)
}

// IsBannedParticipant reports whether p is banned
func (c *Coordinator) IsBannedParticipant(p Participant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.banned[p.key()]
	return ok
}

// IsDroppedParticipant reports whether p was dropped
func (c *Coordinator) IsDroppedParticipant(p Participant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dropped[p.key()]
	return ok
}

// NumberOfQueueContributors returns the queue length
func (c *Coordinator) NumberOfQueueContributors() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queue)
}

// NumberOfDroppedParticipants returns how many participants were dropped
func (c *Coordinator) NumberOfDroppedParticipants() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dropped)
}

// QueueContributorInfo returns the queue entry of p, if any
func (c *Coordinator) QueueContributorInfo(p Participant) (QueueEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.queue {
		if entry.Participant == p {
			return *entry, true
		}
	}
	return QueueEntry{}, false
}

func (c *Coordinator) inQueueLocked(p Participant) bool {
	for _, entry := range c.queue {
		if entry.Participant == p {
			return true
		}
	}
	return false
}

func (c *Coordinator) isCurrentLocked(p Participant) bool {
	return c.current != nil && c.current.Entry.Participant == p
}

func (c *Coordinator) isFinishedLocked(p Participant) bool {
	for _, finished := range c.finished[c.roundHeight] {
		if finished == p {
			return true
		}
	}
	return false
}

//
// -- STATE PERSISTENCE --
//

// finishedRound is the snapshot form of a round's finished contributors
type finishedRound struct {
	Round        uint64        `json:"round"`
	Contributors []Participant `json:"contributors"`
}

// stateSnapshot is the persisted form of the ceremony state
type stateSnapshot struct {
	RoundHeight   uint64               `json:"round_height"`
	RoundComplete bool                 `json:"round_complete"`
	Queue         []*QueueEntry        `json:"queue"`
	Current       *currentSlot         `json:"current,omitempty"`
	Finished      []finishedRound      `json:"finished"`
	Dropped       []Participant        `json:"dropped"`
	Banned        []Participant        `json:"banned"`
	Pending       []Task               `json:"pending"`
	Summary       ContributionsSummary `json:"summary"`
	Shutdown      bool                 `json:"shutdown"`
}

func (c *Coordinator) saveStateLocked() error {
	snapshot := stateSnapshot{
		RoundHeight:   c.roundHeight,
		RoundComplete: c.roundComplete,
		Queue:         c.queue,
		Current:       c.current,
		Summary:       c.summary,
		Shutdown:      c.shutdown,
	}

	rounds := make([]uint64, 0, len(c.finished))
	for round := range c.finished {
		rounds = append(rounds, round)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i] < rounds[j] })
	for _, round := range rounds {
		snapshot.Finished = append(snapshot.Finished, finishedRound{Round: round, Contributors: c.finished[round]})
	}

	for _, p := range c.dropped {
		snapshot.Dropped = append(snapshot.Dropped, p)
	}
	for _, p := range c.banned {
		snapshot.Banned = append(snapshot.Banned, p)
	}
	sort.Slice(snapshot.Dropped, func(i, j int) bool { return snapshot.Dropped[i].key() < snapshot.Dropped[j].key() })
	sort.Slice(snapshot.Banned, func(i, j int) bool { return snapshot.Banned[i].key() < snapshot.Banned[j].key() })

	for task := range c.pending {
		snapshot.Pending = append(snapshot.Pending, task)
	}
	sort.Slice(snapshot.Pending, func(i, j int) bool { return snapshot.Pending[i].Round < snapshot.Pending[j].Round })

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding coordinator state: %w", err)
	}
	return c.storage.SetCoordinatorState(data)
}

func (c *Coordinator) restoreLocked() error {
	data, err := c.storage.GetCoordinatorState()
	if err != nil {
		return err
	}

	var snapshot stateSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decoding coordinator state: %w", err)
	}

	c.roundHeight = snapshot.RoundHeight
	c.roundComplete = snapshot.RoundComplete
	c.queue = snapshot.Queue
	c.current = snapshot.Current
	c.summary = snapshot.Summary
	c.shutdown = false // a restart reopens the ceremony

	c.finished = make(map[uint64][]Participant)
	for _, round := range snapshot.Finished {
		c.finished[round.Round] = round.Contributors
	}

	c.dropped = make(map[string]Participant)
	for _, p := range snapshot.Dropped {
		c.dropped[p.key()] = p
	}
	c.banned = make(map[string]Participant)
	for _, p := range snapshot.Banned {
		c.banned[p.key()] = p
	}

	c.pending = make(map[Task]Participant)
	for _, task := range snapshot.Pending {
		for _, p := range c.finished[task.Round] {
			c.pending[task] = p
		}
	}

	// Known participants restart their liveness window now
	c.heartbeats = make(map[string]time.Time)
	for _, entry := range c.queue {
		c.heartbeats[entry.Participant.key()] = time.Now()
	}
	if c.current != nil {
		c.heartbeats[c.current.Entry.Participant.key()] = time.Now()
	}

	return nil
}

// sweepOrphansLocked removes round artifacts that were written without a
// surviving pending verification, e.g. after a crash between an upload and
// the state checkpoint.
func (c *Coordinator) sweepOrphansLocked() {
	round := c.roundHeight
	if round == 0 || c.roundComplete {
		return
	}
	if _, ok := c.pending[Task{Round: round, Chunk: 0, Contribution: 1}]; ok {
		return
	}

	response := ResponseLocator(round)
	if c.storage.Exists(response.Path()) {
		c.logger.Printf("Sweeping orphan contribution at %s", response.Path())
		if err := c.storage.Remove(response.Path()); err != nil {
			c.logger.Printf("Error while sweeping %s: %v", response.Path(), err)
		}
		if err := c.storage.Remove(ResponseSignatureLocator(round).Path()); err != nil {
			c.logger.Printf("Error while sweeping %s: %v", ResponseSignatureLocator(round).Path(), err)
		}
	}
}

// initialChallenge is the deterministic initialization artifact consumed by
// the first round's contributor.
func initialChallenge() []byte {
	return []byte("certen trusted-setup ceremony initialization artifact v1\n")
}
