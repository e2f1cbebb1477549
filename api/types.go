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

import "time"

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// TimelineBody carries the four phase boundaries as RFC 3339 timestamps
type TimelineBody struct {
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationStop  time.Time `json:"registration_stop"`
	ElectionStart     time.Time `json:"election_start"`
	ElectionEnd       time.Time `json:"election_end"`
}

// CreateElectionRequest is the body of POST /api/v1/election.
type CreateElectionRequest struct {
	AdminName          string `json:"admin_name"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	CoverImage         string `json:"cover_image"`
	GoverningBody      string `json:"governing_body"`
	Country            string `json:"country"`
	GoverningBodyImage string `json:"governing_body_image"`
	TimelineBody
}

// ElectionResponse is returned by GET and POST /api/v1/election.
type ElectionResponse struct {
	ID                 string `json:"id"`
	Administrator      string `json:"administrator"`
	AdminName          string `json:"admin_name"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	CoverImage         string `json:"cover_image"`
	GoverningBody      string `json:"governing_body"`
	Country            string `json:"country"`
	GoverningBodyImage string `json:"governing_body_image"`
	TimelineBody
	Phase string `json:"phase"`
}

// AddCandidateRequest is the body of POST /api/v1/candidates.
type AddCandidateRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type CandidateResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	VoteCount uint64 `json:"vote_count"`
}

// VoteRequest is the body of POST /api/v1/votes.
type VoteRequest struct {
	CandidateID *uint64 `json:"candidate_id"`
}

type VoteResponse struct {
	Voter       string    `json:"voter"`
	CandidateID uint64    `json:"candidate_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// VoterStatusResponse is returned by GET /api/v1/votes/{voter}.
type VoterStatusResponse struct {
	Voter    string        `json:"voter"`
	HasVoted bool          `json:"has_voted"`
	Vote     *VoteResponse `json:"vote,omitempty"`
}

// TallyResponse is returned by GET /api/v1/tally. Candidates are ordered by
// vote count, highest first.
type TallyResponse struct {
	VoteCount  int                 `json:"vote_count"`
	Candidates []CandidateResponse `json:"candidates"`
}
