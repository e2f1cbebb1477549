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
	"strings"
	"time"
)

type CandidateID uint64

type Candidate struct {
	ID        CandidateID
	Name      string
	ImageRef  string
	VoteCount uint64
}

// Registry holds the ordered candidate set and its tallies. A candidate's ID
// is its index in the set. Registry does no locking of its own; the Manager
// serializes access.
type Registry struct {
	phases     *PhaseController
	candidates []Candidate
}

func NewRegistry(phases *PhaseController) *Registry {
	return &Registry{phases: phases}
}

func (r *Registry) Len() int {
	return len(r.candidates)
}

func (r *Registry) Get(id CandidateID) (Candidate, bool) {
	if uint64(id) >= uint64(len(r.candidates)) {
		return Candidate{}, false
	}
	return r.candidates[id], true
}

// List returns a copy of the candidates in registration order
func (r *Registry) List() []Candidate {
	ret := make([]Candidate, len(r.candidates))
	copy(ret, r.candidates)
	return ret
}

func (r *Registry) Tally() map[CandidateID]uint64 {
	ret := make(map[CandidateID]uint64, len(r.candidates))
	for _, c := range r.candidates {
		ret[c.ID] = c.VoteCount
	}
	return ret
}

// prepareAdd validates an addition and returns the candidate it would
// create, without changing the registry.
func (r *Registry) prepareAdd(
	caller Identity,
	now time.Time,
	name string,
	imageRef string,
) (Candidate, error) {
	if caller != r.phases.Administrator() {
		return Candidate{}, fmt.Errorf(
			"%w: %q may not register candidates",
			ErrNotAdministrator,
			caller,
		)
	}
	if err := r.phases.RequirePhase(now, PhaseRegistration); err != nil {
		return Candidate{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Candidate{}, invalidInputf("candidate name is empty")
	}
	return Candidate{
		ID:       CandidateID(len(r.candidates)),
		Name:     name,
		ImageRef: imageRef,
	}, nil
}

func (r *Registry) commitAdd(c Candidate) {
	r.candidates = append(r.candidates, c)
}

func (r *Registry) requireExists(id CandidateID) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("%w: %d", ErrCandidateNotFound, id)
	}
	return nil
}

// incrementVote is the only path that changes a vote count
func (r *Registry) incrementVote(id CandidateID) (uint64, error) {
	if err := r.requireExists(id); err != nil {
		return 0, err
	}
	r.candidates[id].VoteCount++
	return r.candidates[id].VoteCount, nil
}

// restore appends a previously committed candidate with a zero count. Counts
// are rebuilt from the restored vote records.
func (r *Registry) restore(c Candidate) error {
	if c.ID != CandidateID(len(r.candidates)) {
		return fmt.Errorf(
			"stored candidate %d out of sequence, expected %d",
			c.ID,
			len(r.candidates),
		)
	}
	c.VoteCount = 0
	r.candidates = append(r.candidates, c)
	return nil
}
