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

// Package ballotindex holds the compact, immutable representation of every
// formal ballot cast in a count: an ordered preference vector grouped with
// others sharing the identical sequence, plus an integer multiplicity. This
// is what makes Group Voting Ticket counts (hundreds of thousands of ballots
// sharing one printed ticket) tractable: a GVT ticket is one BallotGroup with
// a large multiplicity rather than one struct per physical vote.
package ballotindex

import "fmt"

// CandidateID identifies a candidate; stable for the duration of a count.
type CandidateID int

// GroupID identifies a BallotGroup within an Index.
type GroupID int

// BallotGroup is every formal ballot sharing one ordered, non-empty,
// duplicate-free preference sequence, plus how many physical ballots share
// it (the multiplicity).
type BallotGroup struct {
	ID            GroupID
	Preferences   []CandidateID // decreasing order of preference, index 0 = first preference
	Multiplicity  int64         // count of physical ballots sharing Preferences
}

// Validate checks the structural invariants a formal ballot group must
// satisfy: non-empty, duplicate-free preferences and a positive multiplicity.
func (g BallotGroup) Validate() error {
	if len(g.Preferences) == 0 {
		return fmt.Errorf("ballotindex: group %d has no preferences", g.ID)
	}
	if g.Multiplicity <= 0 {
		return fmt.Errorf("ballotindex: group %d has non-positive multiplicity %d", g.ID, g.Multiplicity)
	}
	seen := make(map[CandidateID]bool, len(g.Preferences))
	for _, c := range g.Preferences {
		if seen[c] {
			return fmt.Errorf("ballotindex: group %d repeats candidate %d in its preferences", g.ID, c)
		}
		seen[c] = true
	}
	return nil
}

// NextContinuing returns the first candidate in Preferences, starting at
// position from (0-based, exclusive of earlier positions already consumed),
// that is not in excluded. It reports ok=false if the ballot exhausts before
// finding one.
func (g BallotGroup) NextContinuing(from int, excluded map[CandidateID]bool) (candidate CandidateID, position int, ok bool) {
	for i := from; i < len(g.Preferences); i++ {
		c := g.Preferences[i]
		if !excluded[c] {
			return c, i, true
		}
	}
	return 0, len(g.Preferences), false
}
