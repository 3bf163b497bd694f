// Copyright 2025 Certen Protocol
//
// Contributor-facing ceremony endpoints

package server

import (
	"net/http"
	"os"

	"github.com/certen/ceremony-coordinator/pkg/coordinator"
	"github.com/certen/ceremony-coordinator/pkg/objectstore"
)

// PostChunkRequest notifies the coordinator of a finished and uploaded
// contribution.
type PostChunkRequest struct {
	RoundHeight                  uint64                                   `json:"round_height"`
	ContributionLocator          coordinator.ContributionLocator          `json:"contribution_locator"`
	ContributionSignatureLocator coordinator.ContributionSignatureLocator `json:"contribution_signature_locator"`
}

// ContributorStatus is the queue status returned to a polling contributor
type ContributorStatus struct {
	Status        string `json:"status"`
	QueuePosition uint64 `json:"queue_position,omitempty"`
	QueueSize     uint64 `json:"queue_size,omitempty"`
}

// handleJoinQueue adds the incoming contributor to the queue.
// POST /contributor/join_queue
func (s *Server) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	participant, address, rerr := s.requireNewParticipant(pubkey, r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	token, rerr := decodeJSON[string](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if err := s.tokens.Admit(token); err != nil {
		s.writeError(w, errToken(err))
		return
	}

	cohort := s.tokens.CurrentCohort()
	if err := s.coordinator.AddToQueue(participant, address, cohort, s.cfg.InitialReliability); err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}

// handleLockChunk locks the round's chunk for the current contributor. This
// is the first call of a contribution: once locked, the challenge is ready
// to be downloaded.
// GET /contributor/lock_chunk
func (s *Server) handleLockChunk(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	participant, rerr := s.requireCurrentContributor(pubkey, r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	_, locators, err := s.coordinator.TryLock(participant)
	if err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeJSON(w, http.StatusOK, locators)
}

// handleChallenge returns a presigned GET URL for the round's challenge. If
// the verified artifact is already in the bucket (round rollback) the URL is
// returned immediately; otherwise the bytes are read from storage and
// uploaded under the canonical key first.
// POST /contributor/challenge
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if _, rerr = s.requireCurrentContributor(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	round, rerr := decodeJSON[uint64](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	key := objectstore.ChallengeKey(round)
	if url, ok := s.gateway.GetChallengeURL(r.Context(), key); ok {
		s.writeJSON(w, http.StatusOK, url)
		return
	}

	challenge, err := s.coordinator.GetChallenge(round)
	if err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	url, err := s.gateway.UploadChallenge(r.Context(), key, challenge)
	if err != nil {
		s.writeError(w, errObjectStore(err))
		return
	}

	s.writeJSON(w, http.StatusOK, url)
}

// handleContributionURLs returns presigned PUT URLs for the contribution
// and its detached signature. Pure URL generation, no state change.
// POST /upload/chunk
func (s *Server) handleContributionURLs(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if _, rerr = s.requireCurrentContributor(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	round, rerr := decodeJSON[uint64](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	contribURL, sigURL, err := s.gateway.ContributionURLs(r.Context(), round)
	if err != nil {
		s.writeError(w, errObjectStore(err))
		return
	}

	s.writeJSON(w, http.StatusOK, [2]string{contribURL, sigURL})
}

// handleContributeChunk downloads the uploaded contribution from the bucket
// and hands it to the coordinator. The download happens before the write
// lock is taken, keeping the critical section minimal.
// POST /contributor/contribute_chunk
func (s *Server) handleContributeChunk(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	participant, rerr := s.requireCurrentContributor(pubkey, r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	request, rerr := decodeJSON[PostChunkRequest](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	contribution, signature, err := s.gateway.GetContribution(r.Context(), request.RoundHeight)
	if err != nil {
		s.writeError(w, errObjectStore(err))
		return
	}

	err = s.coordinator.ContributeChunk(participant, request.ContributionLocator, request.ContributionSignatureLocator, contribution, signature)
	if err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}

// handleHeartbeat refreshes the participant's liveness timestamp.
// POST /contributor/heartbeat
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	participant := coordinator.NewContributor(pubkey)
	if err := s.coordinator.Heartbeat(participant); err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}

// handleQueueStatus reports the contributor's position in the ceremony.
// GET /contributor/queue_status
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	participant := coordinator.NewContributor(pubkey)

	if s.coordinator.IsCurrentContributor(participant) {
		s.writeJSON(w, http.StatusOK, ContributorStatus{Status: "round"})
		return
	}

	if s.coordinator.IsQueueContributor(participant) {
		queueSize := uint64(s.coordinator.NumberOfQueueContributors())
		position := queueSize
		if entry, ok := s.coordinator.QueueContributorInfo(participant); ok && entry.AssignedRound != nil {
			position = *entry.AssignedRound - s.coordinator.CurrentRoundHeight()
		}
		s.writeJSON(w, http.StatusOK, ContributorStatus{
			Status:        "queue",
			QueuePosition: position,
			QueueSize:     queueSize,
		})
		return
	}

	if s.coordinator.IsFinishedContributor(participant) {
		s.writeJSON(w, http.StatusOK, ContributorStatus{Status: "finished"})
		return
	}

	if s.coordinator.IsBannedParticipant(participant) {
		s.writeJSON(w, http.StatusOK, ContributorStatus{Status: "banned"})
		return
	}

	s.writeJSON(w, http.StatusOK, ContributorStatus{Status: "other"})
}

// handlePostContributionInfo validates and persists the contributor's
// metadata for the round.
// POST /contributor/contribution_info
func (s *Server) handlePostContributionInfo(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	participant, rerr := s.requireCurrentContributor(pubkey, r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	info, rerr := decodeJSON[coordinator.ContributionInfo](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if info.PublicKey != participant.PublicKey {
		s.writeError(w, errInvalidContributionInfo(
			"Public key in info "+info.PublicKey+" doesn't match the participant one "+participant.PublicKey))
		return
	}
	if current := s.coordinator.CurrentRoundHeight(); info.CeremonyRound != current {
		// Round height matters in case of a round rollback
		s.writeError(w, errInvalidContributionInfo(
			"Round height in info doesn't match the current round height"))
		return
	}

	if err := s.coordinator.WriteContributionInfo(info); err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}

// handleGetContributionsInfo returns the public contributions summary.
// Accessible by anyone, no signature required.
// GET /contribution_info
func (s *Server) handleGetContributionsInfo(w http.ResponseWriter, r *http.Request) {
	summary, err := s.coordinator.ContributionsSummary()
	if err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(summary)
}

// handleHealthcheck returns the content of the health status file.
// GET /healthcheck
func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(s.cfg.HealthPath)
	if err != nil {
		s.writeError(w, errIO(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
