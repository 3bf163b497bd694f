// Copyright 2025 Certen Protocol
//
// Administrative endpoints restricted to the coordinator's verifier or to
// the shared access secret.

package server

import (
	"net/http"
)

// handleCoordinatorStatus returns the persisted coordinator state snapshot.
// GET /coordinator_status (Access-Secret header)
func (s *Server) handleCoordinatorStatus(w http.ResponseWriter, r *http.Request) {
	if rerr := s.requireSecret(r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	state, err := s.coordinator.CoordinatorState()
	if err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(state)
}

// handleUpdateCohorts loads new tokens for the future cohorts. The body is
// the serialized zip archive; the current cohort's set must be unchanged.
// POST /update_cohorts
func (s *Server) handleUpdateCohorts(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if rerr := s.requireServerAuth(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	body, rerr := s.readVerifiedBody(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	archive, rerr := decodeJSON[[]byte](body)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if err := s.tokens.Update(archive); err != nil {
		s.writeError(w, errToken(err))
		return
	}

	s.writeOK(w)
}

// handleStop shuts the coordinator down and then the server itself.
// GET /stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if rerr := s.requireServerAuth(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if err := s.coordinator.Shutdown(); err != nil {
		s.writeError(w, errShutdown(err))
		return
	}

	s.writeOK(w)

	if s.stop != nil {
		go s.stop()
	}
}

// handleUpdate triggers a coordinator update out of cadence. Mounted only
// when debug endpoints are enabled.
// GET /update
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if rerr := s.requireServerAuth(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if err := s.coordinator.Update(); err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}

// handleVerify triggers verification of the pending contributions out of
// cadence. Mounted only when debug endpoints are enabled.
// GET /verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	pubkey, rerr := s.authenticate(r)
	if rerr != nil {
		s.writeError(w, rerr)
		return
	}
	if rerr := s.requireServerAuth(pubkey, r); rerr != nil {
		s.writeError(w, rerr)
		return
	}

	if err := s.driver.VerifyPending(r.Context()); err != nil {
		s.writeError(w, errCoordinator(err))
		return
	}

	s.writeOK(w)
}
