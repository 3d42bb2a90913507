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

package ballotindex

import "fmt"

// Contribution is a slice of one BallotGroup's multiplicity currently held
// together: Count physical ballots from Group, all sitting at preference
// position At (0-based index into the group's Preferences, i.e. the
// position of the candidate they are currently contributing towards).
// Contributions, not raw ballots, are what a parcel ledger holds: the
// ballot index itself never changes after construction.
type Contribution struct {
	Group GroupID
	Count int64
	At    int
}

// Index is the immutable, compact representation of every formal ballot in
// a count. Parcels elsewhere in the system reference ballot groups by ID;
// the Index itself is never copied or mutated once built.
type Index struct {
	groups []BallotGroup
	byID   map[GroupID]*BallotGroup
}

// NewIndex groups raw preference sequences that are identical into single
// BallotGroup entries, summing multiplicities, and validates every group.
// seqs[i] is a preference sequence and weights[i] its ballot count (almost
// always 1; GVT tickets may carry multiplicities in the thousands).
func NewIndex(seqs [][]CandidateID, weights []int64) (*Index, error) {
	if len(seqs) != len(weights) {
		return nil, fmt.Errorf("ballotindex: %d sequences but %d weights", len(seqs), len(weights))
	}
	type key = string
	order := make([]key, 0, len(seqs))
	bySeq := make(map[key]*BallotGroup)
	for i, seq := range seqs {
		k := sequenceKey(seq)
		g, ok := bySeq[k]
		if !ok {
			g = &BallotGroup{
				ID:          GroupID(len(order)),
				Preferences: append([]CandidateID(nil), seq...),
			}
			bySeq[k] = g
			order = append(order, k)
		}
		g.Multiplicity += weights[i]
	}
	idx := &Index{
		groups: make([]BallotGroup, 0, len(order)),
		byID:   make(map[GroupID]*BallotGroup, len(order)),
	}
	for _, k := range order {
		g := bySeq[k]
		if err := g.Validate(); err != nil {
			return nil, err
		}
		idx.groups = append(idx.groups, *g)
	}
	for i := range idx.groups {
		idx.byID[idx.groups[i].ID] = &idx.groups[i]
	}
	return idx, nil
}

// sequenceKey builds a separator-delimited key uniquely identifying a
// preference sequence, used to fold identical ballots into one group.
func sequenceKey(seq []CandidateID) string {
	b := make([]byte, 0, len(seq)*6)
	for _, c := range seq {
		b = append(b, []byte(fmt.Sprintf("%d,", c))...)
	}
	return string(b)
}

// Groups returns every BallotGroup in the index, in construction order.
func (idx *Index) Groups() []BallotGroup {
	return idx.groups
}

// TotalWeight returns the sum of every group's multiplicity: the total
// formal vote the count must conserve.
func (idx *Index) TotalWeight() int64 {
	var total int64
	for _, g := range idx.groups {
		total += g.Multiplicity
	}
	return total
}

// group looks up a BallotGroup by ID; it is a programming error for a
// Contribution to reference an unknown group, since the index that produced
// the Contribution also produced the group.
func (idx *Index) group(id GroupID) *BallotGroup {
	g, ok := idx.byID[id]
	if !ok {
		panic(fmt.Sprintf("ballotindex: unknown group %d", id))
	}
	return g
}

// InitialDistribution places every ballot group on its first preference,
// at position 0. This seeds round 1 of the count.
func (idx *Index) InitialDistribution() map[CandidateID][]Contribution {
	out := make(map[CandidateID][]Contribution)
	for _, g := range idx.groups {
		first := g.Preferences[0]
		out[first] = append(out[first], Contribution{Group: g.ID, Count: g.Multiplicity, At: 0})
	}
	return out
}

// Advance partitions contributions by each ballot's next preference beyond
// its current position, skipping any candidate in excluded. Contributions
// whose remaining preferences are all in excluded go to the returned
// exhausted slice instead.
func (idx *Index) Advance(contribs []Contribution, excluded map[CandidateID]bool) (to map[CandidateID][]Contribution, exhausted []Contribution) {
	to = make(map[CandidateID][]Contribution)
	for _, c := range contribs {
		g := idx.group(c.Group)
		candidate, pos, ok := g.NextContinuing(c.At+1, excluded)
		if !ok {
			exhausted = append(exhausted, c)
			continue
		}
		to[candidate] = append(to[candidate], Contribution{Group: c.Group, Count: c.Count, At: pos})
	}
	return to, exhausted
}
