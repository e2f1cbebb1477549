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

import (
	"fmt"
	"time"
)

// VoteRecord is the permanent proof that a voter cast a vote
type VoteRecord struct {
	Voter       Identity
	CandidateID CandidateID
	Timestamp   time.Time
}

// Ledger records at most one vote per identity. Like Registry it relies on
// the Manager for serialization.
type Ledger struct {
	phases   *PhaseController
	registry *Registry
	records  map[Identity]VoteRecord
	order    []Identity
}

func NewLedger(phases *PhaseController, registry *Registry) *Ledger {
	return &Ledger{
		phases:   phases,
		registry: registry,
		records:  make(map[Identity]VoteRecord),
	}
}

func (l *Ledger) HasVoted(voter Identity) bool {
	_, ok := l.records[voter]
	return ok
}

func (l *Ledger) Record(voter Identity) (VoteRecord, bool) {
	rec, ok := l.records[voter]
	return rec, ok
}

func (l *Ledger) VoteCount() int {
	return len(l.records)
}

// Records returns all vote records in the order they were accepted
func (l *Ledger) Records() []VoteRecord {
	ret := make([]VoteRecord, 0, len(l.order))
	for _, voter := range l.order {
		ret = append(ret, l.records[voter])
	}
	return ret
}

// prepareVote runs every precondition of a vote and returns the record it
// would create, without changing the ledger or the registry.
func (l *Ledger) prepareVote(
	voter Identity,
	candidateId CandidateID,
	now time.Time,
) (VoteRecord, error) {
	if voter == "" {
		return VoteRecord{}, invalidInputf("voter identity is empty")
	}
	if err := l.phases.RequirePhase(now, PhaseVoting); err != nil {
		return VoteRecord{}, err
	}
	if l.HasVoted(voter) {
		return VoteRecord{}, fmt.Errorf("%w: %q", ErrAlreadyVoted, voter)
	}
	if err := l.registry.requireExists(candidateId); err != nil {
		return VoteRecord{}, err
	}
	return VoteRecord{
		Voter:       voter,
		CandidateID: candidateId,
		Timestamp:   now,
	}, nil
}

// commitVote stores a prepared record and increments its candidate's count
// together. The count is incremented first so a failure leaves both untouched.
func (l *Ledger) commitVote(rec VoteRecord) (uint64, error) {
	if l.HasVoted(rec.Voter) {
		return 0, fmt.Errorf("%w: %q", ErrAlreadyVoted, rec.Voter)
	}
	count, err := l.registry.incrementVote(rec.CandidateID)
	if err != nil {
		return 0, err
	}
	l.records[rec.Voter] = rec
	l.order = append(l.order, rec.Voter)
	return count, nil
}
