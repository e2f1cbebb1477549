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
	"math"
	"slices"
	"time"
)

// Timeline bounds are the range the stores can encode as Unix nanoseconds
var (
	minTimelineTime = time.Unix(0, math.MinInt64)
	maxTimelineTime = time.Unix(0, math.MaxInt64)
)

// Phase is a stage of the election lifecycle. It is always derived from the
// current time and the election timeline, never stored.
type Phase int

const (
	PhasePreRegistration Phase = iota
	PhaseRegistration
	PhasePreElection
	PhaseVoting
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhasePreRegistration:
		return "PreRegistration"
	case PhaseRegistration:
		return "Registration"
	case PhasePreElection:
		return "PreElection"
	case PhaseVoting:
		return "Voting"
	case PhaseClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Timeline holds the four instants that bound the election phases
type Timeline struct {
	RegistrationStart time.Time
	RegistrationStop  time.Time
	ElectionStart     time.Time
	ElectionEnd       time.Time
}

// Validate checks RegistrationStart < RegistrationStop <= ElectionStart < ElectionEnd
func (t Timeline) Validate() error {
	if t.RegistrationStart.IsZero() || t.RegistrationStop.IsZero() ||
		t.ElectionStart.IsZero() || t.ElectionEnd.IsZero() {
		return fmt.Errorf("%w: all four timestamps are required", ErrInvalidTimeline)
	}
	for _, ts := range []time.Time{
		t.RegistrationStart,
		t.RegistrationStop,
		t.ElectionStart,
		t.ElectionEnd,
	} {
		if ts.Before(minTimelineTime) || ts.After(maxTimelineTime) {
			return fmt.Errorf(
				"%w: %s is outside the supported range %s to %s",
				ErrInvalidTimeline,
				ts.UTC().Format(time.RFC3339),
				minTimelineTime.UTC().Format(time.RFC3339),
				maxTimelineTime.UTC().Format(time.RFC3339),
			)
		}
	}
	if !t.RegistrationStart.Before(t.RegistrationStop) {
		return fmt.Errorf(
			"%w: registration start %s is not before registration stop %s",
			ErrInvalidTimeline,
			t.RegistrationStart.Format(time.RFC3339),
			t.RegistrationStop.Format(time.RFC3339),
		)
	}
	if t.ElectionStart.Before(t.RegistrationStop) {
		return fmt.Errorf(
			"%w: election start %s is before registration stop %s",
			ErrInvalidTimeline,
			t.ElectionStart.Format(time.RFC3339),
			t.RegistrationStop.Format(time.RFC3339),
		)
	}
	if !t.ElectionStart.Before(t.ElectionEnd) {
		return fmt.Errorf(
			"%w: election start %s is not before election end %s",
			ErrInvalidTimeline,
			t.ElectionStart.Format(time.RFC3339),
			t.ElectionEnd.Format(time.RFC3339),
		)
	}
	return nil
}

// Phase returns the phase active at now. Window starts are inclusive and
// window ends exclusive.
func (t Timeline) Phase(now time.Time) Phase {
	switch {
	case now.Before(t.RegistrationStart):
		return PhasePreRegistration
	case now.Before(t.RegistrationStop):
		return PhaseRegistration
	case now.Before(t.ElectionStart):
		return PhasePreElection
	case now.Before(t.ElectionEnd):
		return PhaseVoting
	default:
		return PhaseClosed
	}
}

// PhaseController owns the election record and gates time-sensitive
// operations on the phase derived from it.
type PhaseController struct {
	election Election
}

func NewPhaseController(e Election) (*PhaseController, error) {
	if err := e.Timeline.Validate(); err != nil {
		return nil, err
	}
	return &PhaseController{election: e}, nil
}

// Election returns a copy of the controlled election record
func (c *PhaseController) Election() Election {
	return c.election
}

func (c *PhaseController) Administrator() Identity {
	return c.election.Administrator
}

func (c *PhaseController) CurrentPhase(now time.Time) Phase {
	return c.election.Timeline.Phase(now)
}

// RequirePhase returns a *PhaseError unless the phase at now is one of allowed
func (c *PhaseController) RequirePhase(now time.Time, allowed ...Phase) error {
	actual := c.CurrentPhase(now)
	if slices.Contains(allowed, actual) {
		return nil
	}
	return &PhaseError{
		Actual:   actual,
		Expected: slices.Clone(allowed),
	}
}
