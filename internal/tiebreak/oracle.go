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

// Package tiebreak provides the decision interface the round engine
// consults when a statutory tie-break by prior-round totals fails to
// distinguish candidates. The reference implementation this is modelled on
// prompts a human at the terminal for this decision; that is reshaped here
// into a pure function of its inputs so a count stays replayable byte for
// byte given the same input and the same oracle answers.
package tiebreak

import (
	"fmt"
	"sort"
	"strings"

	"senatecount/internal/ballotindex"
)

// Context names the statutory reason the round engine is consulting the
// oracle, matching the five tie-break points named in Section 273.
type Context string

const (
	ExclusionTie          Context = "exclusion_tie"
	ElectionOrderTie      Context = "election_order_tie"
	LastVacancyTie        Context = "last_vacancy_tie"
	SurplusOrderTie       Context = "surplus_order_tie"
	BulkExclusionOrderTie Context = "bulk_exclusion_order_tie"
)

// Oracle resolves a tie between candidates, given the statutory context it
// arose in. Implementations must be deterministic given their inputs: the
// engine's replay-idempotence guarantee depends on it.
type Oracle interface {
	Resolve(round int, ctx Context, candidates []ballotindex.CandidateID) (ballotindex.CandidateID, error)
}

// key uniquely identifies one tie-break decision point, independent of the
// order candidates happen to be listed in.
type key struct {
	round int
	ctx   Context
	set   string
}

func makeKey(round int, ctx Context, candidates []ballotindex.CandidateID) key {
	sorted := append([]ballotindex.CandidateID(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return key{round: round, ctx: ctx, set: strings.Join(parts, ",")}
}

// TableOracle resolves ties from a fixed lookup table keyed by
// (round, context, candidate-set), exactly the "automation" input of
// spec.md §6: it lets a known AEC declaration, or a test fixture, be
// replayed exactly.
type TableOracle struct {
	table map[key]ballotindex.CandidateID
}

// NewTableOracle builds a TableOracle from entries recorded by Record, or
// populated directly by ingestion from an automation file.
func NewTableOracle() *TableOracle {
	return &TableOracle{table: make(map[key]ballotindex.CandidateID)}
}

// Record adds a fixed answer for a future tie-break at (round, ctx, candidates).
func (o *TableOracle) Record(round int, ctx Context, candidates []ballotindex.CandidateID, answer ballotindex.CandidateID) {
	o.table[makeKey(round, ctx, candidates)] = answer
}

// Resolve implements Oracle. It returns an error — not a default answer —
// when no entry matches, since a silent default would defeat the purpose
// of a replayable, auditable tie-break record.
func (o *TableOracle) Resolve(round int, ctx Context, candidates []ballotindex.CandidateID) (ballotindex.CandidateID, error) {
	answer, ok := o.table[makeKey(round, ctx, candidates)]
	if !ok {
		return 0, fmt.Errorf("tiebreak: no automation entry for round %d context %s candidates %v", round, ctx, candidates)
	}
	return answer, nil
}

// LowestIDOracle deterministically resolves every tie in favour of the
// lowest candidate ID. It never errors, which makes it useful for property
// tests that need some answer rather than a specific, AEC-matching one; it
// must not be used to reproduce an official declaration.
type LowestIDOracle struct{}

// Resolve implements Oracle.
func (LowestIDOracle) Resolve(_ int, _ Context, candidates []ballotindex.CandidateID) (ballotindex.CandidateID, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("tiebreak: cannot resolve a tie among zero candidates")
	}
	lowest := candidates[0]
	for _, c := range candidates[1:] {
		if c < lowest {
			lowest = c
		}
	}
	return lowest, nil
}
