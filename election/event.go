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

import "github.com/blinklabs-io/blockballot/event"

const (
	ElectionCreatedEventType event.EventType = "election.created"
	CandidateAddedEventType  event.EventType = "election.candidate"
	VoteCastEventType        event.EventType = "election.vote"
)

// Events are published only after the transition has committed. Sequence
// increases by one per committed transition of the instance, so observers
// can restore commit order across concurrent publishers.

type ElectionCreatedEvent struct {
	Sequence uint64
	Election Election
}

type CandidateAddedEvent struct {
	Sequence  uint64
	Candidate Candidate
}

type VoteCastEvent struct {
	Sequence  uint64
	Record    VoteRecord
	NewCount  uint64
	VoteCount int
}
