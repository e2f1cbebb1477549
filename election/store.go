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

package election

// Store durably commits election state. Each Save call must be atomic: it
// either commits fully or returns an error having changed nothing. SaveVote
// commits the record and the candidate's count increment as one unit.
type Store interface {
	SaveElection(Election) error
	SaveCandidate(Candidate) error
	SaveVote(VoteRecord) error
	LoadState() (*StoredState, error)
}

// StoredState is the committed state of one election. Election is nil when
// nothing has been created yet. Votes are ordered by acceptance.
type StoredState struct {
	Election   *Election
	Candidates []Candidate
	Votes      []VoteRecord
}
