// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package count

import (
	"fmt"

	"senatecount/internal/ballotindex"
	"senatecount/internal/tiebreak"
)

// InvariantViolation is fatal: an arithmetic or structural invariant the
// engine relies on did not hold. Name identifies which one.
type InvariantViolation struct {
	Name  string
	Round int
	Got   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("count: invariant %q violated at round %d: %s", e.Name, e.Round, e.Got)
}

// InputRejected is fatal and returned before round 1: the election
// specification itself is unusable.
type InputRejected struct {
	Reason string
}

func (e *InputRejected) Error() string {
	return fmt.Sprintf("count: input rejected: %s", e.Reason)
}

// TieUnresolved is fatal: a statutory tie-break failed and the oracle
// declined to answer.
type TieUnresolved struct {
	Context    tiebreak.Context
	Round      int
	Candidates []ballotindex.CandidateID
	Cause      error
}

func (e *TieUnresolved) Error() string {
	return fmt.Sprintf("count: unresolved tie at round %d, context %s, candidates %v: %v", e.Round, e.Context, e.Candidates, e.Cause)
}

func (e *TieUnresolved) Unwrap() error { return e.Cause }

// DegenerateCount is fatal: exhaustion left fewer continuing candidates than
// remaining vacancies, and the priority-action ladder in §4.4 found nothing
// left to do. A correctly arithmetic count should never reach this; seeing
// it means either the ballot data or an invariant upstream is broken.
type DegenerateCount struct {
	Round              int
	ContinuingCount    int
	VacanciesRemaining int
}

func (e *DegenerateCount) Error() string {
	return fmt.Sprintf("count: degenerate at round %d: %d continuing candidates for %d remaining vacancies", e.Round, e.ContinuingCount, e.VacanciesRemaining)
}
