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
	"time"

	"github.com/blinklabs-io/blockballot/election"
)

// ElectionService is the part of the election manager the HTTP server
// drives. It decouples the handlers from the concrete Manager and enables
// testing with other implementations.
type ElectionService interface {
	CreateElection(
		caller election.Identity,
		params election.ElectionParams,
	) (election.Election, error)
	AddCandidate(
		caller election.Identity,
		now time.Time,
		name string,
		imageRef string,
	) (election.CandidateID, error)
	Vote(
		caller election.Identity,
		now time.Time,
		candidateId election.CandidateID,
	) (election.VoteRecord, error)
	Election() (election.Election, error)
	Phase(now time.Time) (election.Phase, error)
	Candidates() []election.Candidate
	VoteRecord(voter election.Identity) (election.VoteRecord, bool)
	Snapshot() election.Snapshot
}

var _ ElectionService = (*election.Manager)(nil)
