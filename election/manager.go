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
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/blockballot/event"
)

type ManagerConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Store is optional. Without one the election lives only in memory.
	Store Store
}

// Manager is the handle for a single election instance and the only entry
// point for changing it. Every mutation runs validate, durable commit and
// apply inside one exclusive critical section; reads share the lock and
// return copies.
type Manager struct {
	config   ManagerConfig
	logger   *slog.Logger
	metrics  managerMetrics
	mu       sync.RWMutex
	phases   *PhaseController
	registry *Registry
	ledger   *Ledger
	sequence uint64
}

// NewManager creates an election instance. When cfg.Store is set, any state
// it already holds is restored and verified before the Manager is returned.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PromRegistry == nil {
		cfg.PromRegistry = prometheus.NewRegistry()
	}
	m := &Manager{
		config: cfg,
		logger: cfg.Logger.With("component", "election"),
	}
	m.metrics.init(cfg.PromRegistry)
	if cfg.Store != nil {
		if err := m.restore(); err != nil {
			return nil, fmt.Errorf("failed to restore election state: %w", err)
		}
	}
	return m, nil
}

func (m *Manager) restore() error {
	state, err := m.config.Store.LoadState()
	if err != nil {
		return err
	}
	if state == nil || state.Election == nil {
		if state != nil && (len(state.Candidates) > 0 || len(state.Votes) > 0) {
			return errors.New("stored candidates or votes without an election")
		}
		return nil
	}
	phases, err := NewPhaseController(*state.Election)
	if err != nil {
		return err
	}
	registry := NewRegistry(phases)
	ledger := NewLedger(phases, registry)
	for _, c := range state.Candidates {
		if err := registry.restore(c); err != nil {
			return err
		}
	}
	for _, rec := range state.Votes {
		if _, err := ledger.commitVote(rec); err != nil {
			return fmt.Errorf("stored vote for %q: %w", rec.Voter, err)
		}
	}
	// Rebuilt counts must match the stored per-candidate counts
	for _, c := range state.Candidates {
		restored, _ := registry.Get(c.ID)
		if restored.VoteCount != c.VoteCount {
			return fmt.Errorf(
				"stored count for candidate %d is %d but %d vote records reference it",
				c.ID,
				c.VoteCount,
				restored.VoteCount,
			)
		}
	}
	m.phases = phases
	m.registry = registry
	m.ledger = ledger
	m.sequence = uint64(1 + registry.Len() + ledger.VoteCount())
	m.metrics.initialized.Set(1)
	m.metrics.candidates.Set(float64(registry.Len()))
	m.metrics.votes.Set(float64(ledger.VoteCount()))
	m.logger.Info(
		"restored election state",
		"election", phases.Election().ID,
		"candidates", registry.Len(),
		"votes", ledger.VoteCount(),
	)
	return nil
}

// commit runs fn against the store, if any, recording its latency
func (m *Manager) commit(fn func(Store) error) error {
	if m.config.Store == nil {
		return nil
	}
	start := time.Now()
	err := fn(m.config.Store)
	m.metrics.commitLatency.Observe(time.Since(start).Seconds())
	return err
}

func (m *Manager) reject(operation string, caller Identity, err error) {
	reason := ErrorReason(err)
	m.metrics.rejections.WithLabelValues(operation, reason).Inc()
	m.logger.Debug(
		"rejected "+operation,
		"caller", caller,
		"reason", reason,
		"error", err,
	)
}

func (m *Manager) publish(eventType event.EventType, data any) {
	if m.config.EventBus == nil {
		return
	}
	// Async delivery keeps a stalled subscriber from blocking the caller.
	// Subscribers order events by their Sequence.
	m.config.EventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}

// CreateElection initializes the instance with caller as administrator. It
// succeeds at most once per instance.
func (m *Manager) CreateElection(
	caller Identity,
	params ElectionParams,
) (Election, error) {
	m.mu.Lock()
	e, err := m.createElection(caller, params)
	var evt ElectionCreatedEvent
	if err == nil {
		m.sequence++
		evt = ElectionCreatedEvent{Sequence: m.sequence, Election: e}
		m.metrics.initialized.Set(1)
	}
	m.mu.Unlock()
	if err != nil {
		m.reject("create_election", caller, err)
		return Election{}, err
	}
	m.logger.Info(
		"election created",
		"election", e.ID,
		"administrator", e.Administrator,
		"title", e.Title,
	)
	m.publish(ElectionCreatedEventType, evt)
	return e, nil
}

func (m *Manager) createElection(
	caller Identity,
	params ElectionParams,
) (Election, error) {
	if m.phases != nil {
		return Election{}, fmt.Errorf(
			"%w: %s",
			ErrAlreadyInitialized,
			m.phases.Election().ID,
		)
	}
	if caller == "" {
		return Election{}, invalidInputf("caller identity is empty")
	}
	if err := params.Timeline.Validate(); err != nil {
		return Election{}, err
	}
	if err := params.validate(); err != nil {
		return Election{}, err
	}
	e := Election{
		ID:             uuid.NewString(),
		Administrator:  caller,
		ElectionParams: params,
	}
	phases, err := NewPhaseController(e)
	if err != nil {
		return Election{}, err
	}
	if err := m.commit(func(s Store) error { return s.SaveElection(e) }); err != nil {
		return Election{}, fmt.Errorf("failed to commit election: %w", err)
	}
	m.phases = phases
	m.registry = NewRegistry(phases)
	m.ledger = NewLedger(phases, m.registry)
	return e, nil
}

// AddCandidate registers a candidate. Only the administrator may call it,
// and only during the Registration phase.
func (m *Manager) AddCandidate(
	caller Identity,
	now time.Time,
	name string,
	imageRef string,
) (CandidateID, error) {
	m.mu.Lock()
	c, err := m.addCandidate(caller, now, name, imageRef)
	var evt CandidateAddedEvent
	if err == nil {
		m.sequence++
		evt = CandidateAddedEvent{Sequence: m.sequence, Candidate: c}
		m.metrics.candidates.Set(float64(m.registry.Len()))
	}
	m.mu.Unlock()
	if err != nil {
		m.reject("add_candidate", caller, err)
		return 0, err
	}
	m.logger.Info(
		"candidate added",
		"candidate", c.ID,
		"name", c.Name,
	)
	m.publish(CandidateAddedEventType, evt)
	return c.ID, nil
}

func (m *Manager) addCandidate(
	caller Identity,
	now time.Time,
	name string,
	imageRef string,
) (Candidate, error) {
	if m.phases == nil {
		return Candidate{}, ErrNotInitialized
	}
	c, err := m.registry.prepareAdd(caller, now, name, imageRef)
	if err != nil {
		return Candidate{}, err
	}
	if err := m.commit(func(s Store) error { return s.SaveCandidate(c) }); err != nil {
		return Candidate{}, fmt.Errorf("failed to commit candidate: %w", err)
	}
	m.registry.commitAdd(c)
	return c, nil
}

// Vote casts caller's single vote for candidateId. Any identity may vote
// during the Voting phase.
func (m *Manager) Vote(
	caller Identity,
	now time.Time,
	candidateId CandidateID,
) (VoteRecord, error) {
	m.mu.Lock()
	rec, count, err := m.vote(caller, now, candidateId)
	var evt VoteCastEvent
	if err == nil {
		m.sequence++
		evt = VoteCastEvent{
			Sequence:  m.sequence,
			Record:    rec,
			NewCount:  count,
			VoteCount: m.ledger.VoteCount(),
		}
		m.metrics.votes.Set(float64(evt.VoteCount))
	}
	m.mu.Unlock()
	if err != nil {
		m.reject("vote", caller, err)
		return VoteRecord{}, err
	}
	m.logger.Info(
		"vote cast",
		"voter", rec.Voter,
		"candidate", rec.CandidateID,
	)
	m.publish(VoteCastEventType, evt)
	return rec, nil
}

func (m *Manager) vote(
	caller Identity,
	now time.Time,
	candidateId CandidateID,
) (VoteRecord, uint64, error) {
	if m.phases == nil {
		return VoteRecord{}, 0, ErrNotInitialized
	}
	rec, err := m.ledger.prepareVote(caller, candidateId, now)
	if err != nil {
		return VoteRecord{}, 0, err
	}
	if err := m.commit(func(s Store) error { return s.SaveVote(rec) }); err != nil {
		return VoteRecord{}, 0, fmt.Errorf("failed to commit vote: %w", err)
	}
	count, err := m.ledger.commitVote(rec)
	if err != nil {
		// prepareVote checked every condition commitVote relies on
		return VoteRecord{}, 0, fmt.Errorf("apply committed vote: %w", err)
	}
	return rec, count, nil
}

// Election returns the election record, or ErrNotInitialized
func (m *Manager) Election() (Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phases == nil {
		return Election{}, ErrNotInitialized
	}
	return m.phases.Election(), nil
}

// Phase returns the phase at now, or ErrNotInitialized
func (m *Manager) Phase(now time.Time) (Phase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phases == nil {
		return 0, ErrNotInitialized
	}
	return m.phases.CurrentPhase(now), nil
}

// Candidates returns the candidates in registration order
func (m *Manager) Candidates() []Candidate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.registry == nil {
		return []Candidate{}
	}
	return m.registry.List()
}

func (m *Manager) Tally() map[CandidateID]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.registry == nil {
		return map[CandidateID]uint64{}
	}
	return m.registry.Tally()
}

// Results returns the candidates ordered by vote count, highest first
func (m *Manager) Results() []Candidate {
	return m.Snapshot().Results()
}

func (m *Manager) HasVoted(voter Identity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ledger == nil {
		return false
	}
	return m.ledger.HasVoted(voter)
}

// VoteRecord returns the vote cast by voter, if any
func (m *Manager) VoteRecord(voter Identity) (VoteRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ledger == nil {
		return VoteRecord{}, false
	}
	return m.ledger.Record(voter)
}

func (m *Manager) VoteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ledger == nil {
		return 0
	}
	return m.ledger.VoteCount()
}

// Snapshot is a consistent view of the whole instance taken under one lock
type Snapshot struct {
	Election   *Election
	Candidates []Candidate
	Votes      []VoteRecord
	Sequence   uint64
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := Snapshot{
		Candidates: []Candidate{},
		Votes:      []VoteRecord{},
		Sequence:   m.sequence,
	}
	if m.phases == nil {
		return ret
	}
	e := m.phases.Election()
	ret.Election = &e
	ret.Candidates = m.registry.List()
	ret.Votes = m.ledger.Records()
	return ret
}

// Results returns the snapshot's candidates ordered by vote count, highest
// first, with ties broken by registration order
func (s Snapshot) Results() []Candidate {
	ret := slices.Clone(s.Candidates)
	slices.SortStableFunc(ret, func(a, b Candidate) int {
		return cmp.Compare(b.VoteCount, a.VoteCount)
	})
	return ret
}
