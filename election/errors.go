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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAlreadyInitialized = errors.New("election already initialized")
	ErrNotInitialized     = errors.New("election not initialized")
	ErrInvalidTimeline    = errors.New("invalid election timeline")
	ErrNotAdministrator   = errors.New("caller is not the election administrator")
	ErrPhaseViolation     = errors.New("operation not allowed in current phase")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrAlreadyVoted       = errors.New("voter has already voted")
)

// PhaseError reports an operation attempted outside its phase window. It
// matches ErrPhaseViolation with errors.Is.
type PhaseError struct {
	Actual   Phase
	Expected []Phase
}

func (e *PhaseError) Error() string {
	expected := make([]string, 0, len(e.Expected))
	for _, p := range e.Expected {
		expected = append(expected, p.String())
	}
	return fmt.Sprintf(
		"%s: phase is %s, expected %s",
		ErrPhaseViolation.Error(),
		e.Actual,
		strings.Join(expected, " or "),
	)
}

func (e *PhaseError) Unwrap() error { return ErrPhaseViolation }

func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// ErrorReason returns a short stable label for a rejection, used for metrics
// and log fields. Errors outside the election taxonomy map to "internal".
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrInvalidTimeline):
		return "invalid_timeline"
	case errors.Is(err, ErrNotAdministrator):
		return "not_administrator"
	case errors.Is(err, ErrPhaseViolation):
		return "phase_violation"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrCandidateNotFound):
		return "candidate_not_found"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	default:
		return "internal"
	}
}
