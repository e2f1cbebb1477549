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

package election_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/blockballot/election"
)

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func testTimeline() election.Timeline {
	return election.Timeline{
		RegistrationStart: t0,
		RegistrationStop:  t0.Add(3600 * time.Second),
		ElectionStart:     t0.Add(7200 * time.Second),
		ElectionEnd:       t0.Add(14400 * time.Second),
	}
}

func TestTimelineValidate(t *testing.T) {
	testDefs := []struct {
		name    string
		mutate  func(*election.Timeline)
		wantErr bool
	}{
		{name: "valid", mutate: func(*election.Timeline) {}},
		{
			name: "registration stop equals election start",
			mutate: func(tl *election.Timeline) {
				tl.ElectionStart = tl.RegistrationStop
			},
		},
		{
			name: "zero timestamp",
			mutate: func(tl *election.Timeline) {
				tl.ElectionEnd = time.Time{}
			},
			wantErr: true,
		},
		{
			name: "empty registration window",
			mutate: func(tl *election.Timeline) {
				tl.RegistrationStop = tl.RegistrationStart
			},
			wantErr: true,
		},
		{
			name: "election starts during registration",
			mutate: func(tl *election.Timeline) {
				tl.ElectionStart = tl.RegistrationStop.Add(-time.Second)
			},
			wantErr: true,
		},
		{
			name: "election ends after 2262",
			mutate: func(tl *election.Timeline) {
				tl.ElectionEnd = time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
			},
			wantErr: true,
		},
		{
			name: "registration starts before 1678",
			mutate: func(tl *election.Timeline) {
				tl.RegistrationStart = time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)
			},
			wantErr: true,
		},
		{
			name: "election ends at start",
			mutate: func(tl *election.Timeline) {
				tl.ElectionEnd = tl.ElectionStart
			},
			wantErr: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			tl := testTimeline()
			testDef.mutate(&tl)
			err := tl.Validate()
			if testDef.wantErr {
				require.ErrorIs(t, err, election.ErrInvalidTimeline)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTimelinePhaseBoundaries(t *testing.T) {
	tl := testTimeline()
	testDefs := []struct {
		at    time.Time
		phase election.Phase
	}{
		{tl.RegistrationStart.Add(-time.Nanosecond), election.PhasePreRegistration},
		{tl.RegistrationStart, election.PhaseRegistration},
		{tl.RegistrationStop.Add(-time.Nanosecond), election.PhaseRegistration},
		{tl.RegistrationStop, election.PhasePreElection},
		{tl.ElectionStart, election.PhaseVoting},
		{tl.ElectionEnd.Add(-time.Nanosecond), election.PhaseVoting},
		{tl.ElectionEnd, election.PhaseClosed},
		{tl.ElectionEnd.Add(24 * time.Hour), election.PhaseClosed},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.phase,
			tl.Phase(testDef.at),
			"phase at %s",
			testDef.at,
		)
	}
}

func TestTimelinePhaseEmptyPreElection(t *testing.T) {
	tl := testTimeline()
	tl.ElectionStart = tl.RegistrationStop
	assert.Equal(t, election.PhaseVoting, tl.Phase(tl.RegistrationStop))
}

func TestRequirePhase(t *testing.T) {
	pc, err := election.NewPhaseController(election.Election{
		Administrator: "admin",
		ElectionParams: election.ElectionParams{
			Timeline: testTimeline(),
		},
	})
	require.NoError(t, err)
	require.NoError(
		t,
		pc.RequirePhase(t0.Add(time.Minute), election.PhaseRegistration),
	)
	err = pc.RequirePhase(
		t0.Add(5000*time.Second),
		election.PhaseRegistration,
		election.PhaseVoting,
	)
	require.ErrorIs(t, err, election.ErrPhaseViolation)
	var phaseErr *election.PhaseError
	require.True(t, errors.As(err, &phaseErr))
	assert.Equal(t, election.PhasePreElection, phaseErr.Actual)
	assert.Equal(
		t,
		[]election.Phase{election.PhaseRegistration, election.PhaseVoting},
		phaseErr.Expected,
	)
	assert.Contains(t, err.Error(), "PreElection")
	assert.Contains(t, err.Error(), "Registration or Voting")
}

func TestNewPhaseControllerRejectsBadTimeline(t *testing.T) {
	_, err := election.NewPhaseController(election.Election{})
	require.ErrorIs(t, err, election.ErrInvalidTimeline)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Closed", election.PhaseClosed.String())
	assert.Equal(t, "Phase(42)", election.Phase(42).String())
	text, err := election.PhaseVoting.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Voting", string(text))
}
