// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/blinklabs-io/blockballot/election"
)

const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusForError maps an election error to its HTTP status
func statusForError(err error) int {
	switch {
	case errors.Is(err, election.ErrAlreadyInitialized),
		errors.Is(err, election.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, election.ErrInvalidTimeline),
		errors.Is(err, election.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, election.ErrNotAdministrator):
		return http.StatusForbidden
	case errors.Is(err, election.ErrPhaseViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, election.ErrCandidateNotFound),
		errors.Is(err, election.ErrNotInitialized):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeElectionError(
	w http.ResponseWriter,
	operation string,
	err error,
) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"failed to "+operation,
			"error", err,
		)
		writeError(w, status, "failed to "+operation)
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func callerFrom(r *http.Request) election.Identity {
	return election.Identity(strings.TrimSpace(r.Header.Get(CallerHeader)))
}

func electionResponse(e election.Election, phase election.Phase) ElectionResponse {
	return ElectionResponse{
		ID:                 e.ID,
		Administrator:      string(e.Administrator),
		AdminName:          e.AdminName,
		Title:              e.Title,
		Description:        e.Description,
		CoverImage:         e.CoverImage,
		GoverningBody:      e.GoverningBody,
		Country:            e.Country,
		GoverningBodyImage: e.GoverningBodyImage,
		TimelineBody: TimelineBody{
			RegistrationStart: e.Timeline.RegistrationStart.UTC(),
			RegistrationStop:  e.Timeline.RegistrationStop.UTC(),
			ElectionStart:     e.Timeline.ElectionStart.UTC(),
			ElectionEnd:       e.Timeline.ElectionEnd.UTC(),
		},
		Phase: phase.String(),
	}
}

func candidateResponses(candidates []election.Candidate) []CandidateResponse {
	ret := make([]CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		ret = append(ret, CandidateResponse{
			ID:        uint64(c.ID),
			Name:      c.Name,
			Image:     c.ImageRef,
			VoteCount: c.VoteCount,
		})
	}
	return ret
}

func voteResponse(rec election.VoteRecord) VoteResponse {
	return VoteResponse{
		Voter:       string(rec.Voter),
		CandidateID: uint64(rec.CandidateID),
		Timestamp:   rec.Timestamp.UTC(),
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(
		w,
		http.StatusMethodNotAllowed,
		r.Method+" is not allowed on "+r.URL.Path,
	)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleGetElection handles GET /api/v1/election and returns the election
// with its phase at the time of the request.
func (s *Server) handleGetElection(
	w http.ResponseWriter,
	_ *http.Request,
) {
	e, err := s.election.Election()
	if err != nil {
		s.writeElectionError(w, "get election", err)
		return
	}
	phase, err := s.election.Phase(s.config.Now())
	if err != nil {
		s.writeElectionError(w, "get election phase", err)
		return
	}
	writeJSON(w, http.StatusOK, electionResponse(e, phase))
}

// handleCreateElection handles POST /api/v1/election
func (s *Server) handleCreateElection(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req CreateElectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.election.CreateElection(
		callerFrom(r),
		election.ElectionParams{
			AdminName:          req.AdminName,
			Title:              req.Title,
			Description:        req.Description,
			CoverImage:         req.CoverImage,
			GoverningBody:      req.GoverningBody,
			Country:            req.Country,
			GoverningBodyImage: req.GoverningBodyImage,
			Timeline: election.Timeline{
				RegistrationStart: req.RegistrationStart,
				RegistrationStop:  req.RegistrationStop,
				ElectionStart:     req.ElectionStart,
				ElectionEnd:       req.ElectionEnd,
			},
		},
	)
	if err != nil {
		s.writeElectionError(w, "create election", err)
		return
	}
	writeJSON(
		w,
		http.StatusCreated,
		electionResponse(e, e.Timeline.Phase(s.config.Now())),
	)
}

// handleListCandidates handles GET /api/v1/candidates
func (s *Server) handleListCandidates(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(
		w,
		http.StatusOK,
		candidateResponses(s.election.Candidates()),
	)
}

// handleAddCandidate handles POST /api/v1/candidates
func (s *Server) handleAddCandidate(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req AddCandidateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.election.AddCandidate(
		callerFrom(r),
		s.config.Now(),
		req.Name,
		req.Image,
	)
	if err != nil {
		s.writeElectionError(w, "add candidate", err)
		return
	}
	writeJSON(w, http.StatusCreated, CandidateResponse{
		ID:    uint64(id),
		Name:  req.Name,
		Image: req.Image,
	})
}

// handleVote handles POST /api/v1/votes
func (s *Server) handleVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CandidateID == nil {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}
	rec, err := s.election.Vote(
		callerFrom(r),
		s.config.Now(),
		election.CandidateID(*req.CandidateID),
	)
	if err != nil {
		s.writeElectionError(w, "cast vote", err)
		return
	}
	writeJSON(w, http.StatusCreated, voteResponse(rec))
}

// handleGetVote handles GET /api/v1/votes/{voter}
func (s *Server) handleGetVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	voter := election.Identity(mux.Vars(r)["voter"])
	resp := VoterStatusResponse{Voter: string(voter)}
	if rec, ok := s.election.VoteRecord(voter); ok {
		v := voteResponse(rec)
		resp.HasVoted = true
		resp.Vote = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTally handles GET /api/v1/tally. The counts come from a single
// snapshot so vote_count always equals the sum of the candidate counts.
func (s *Server) handleTally(
	w http.ResponseWriter,
	_ *http.Request,
) {
	snap := s.election.Snapshot()
	writeJSON(w, http.StatusOK, TallyResponse{
		VoteCount:  len(snap.Votes),
		Candidates: candidateResponses(snap.Results()),
	})
}
