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

// Package ledger tracks, per candidate, the ordered collection of parcels of
// ballots currently credited to them. Insertion order is a first-class
// ordering here, not an incidental: exclusion redistributes parcels in
// ascending transfer-value order, with ties broken by order of receipt, and
// a 2016+ surplus distribution drains only the most recently received
// parcel. Losing this order would silently change the outcome of a count.
package ledger

import (
	"fmt"

	"senatecount/internal/ballotindex"
	"senatecount/internal/ratio"
)

// Parcel is a bundle of ballot-group contributions received by a candidate
// in a single transfer, all at one transfer value.
type Parcel struct {
	Contributions []ballotindex.Contribution
	TransferValue ratio.Rational
}

// BallotCount returns the number of physical ballots in the parcel,
// unweighted by transfer value.
func (p Parcel) BallotCount() int64 {
	var n int64
	for _, c := range p.Contributions {
		n += c.Count
	}
	return n
}

// Votes returns the parcel's contribution to its holder's tally: ballot
// count weighted by transfer value, as an exact Rational.
func (p Parcel) Votes() ratio.Rational {
	return ratio.Mul(ratio.FromInt(p.BallotCount()), p.TransferValue)
}

// Ledger is the per-candidate ordered parcel ledger for an entire count.
type Ledger struct {
	parcels map[ballotindex.CandidateID][]Parcel
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{parcels: make(map[ballotindex.CandidateID][]Parcel)}
}

// Append adds parcel to the end of candidate's parcel list: it is the most
// recently received parcel until another is appended.
func (l *Ledger) Append(candidate ballotindex.CandidateID, parcel Parcel) {
	if len(parcel.Contributions) == 0 {
		return
	}
	l.parcels[candidate] = append(l.parcels[candidate], parcel)
}

// Parcels returns candidate's parcels in receipt order, without draining
// them. The returned slice must not be mutated by the caller.
func (l *Ledger) Parcels(candidate ballotindex.CandidateID) []Parcel {
	return l.parcels[candidate]
}

// Tally returns candidate's current total, summed exactly across every
// parcel they hold.
func (l *Ledger) Tally(candidate ballotindex.CandidateID) ratio.Rational {
	total := ratio.Zero()
	for _, p := range l.parcels[candidate] {
		total = ratio.Add(total, p.Votes())
	}
	return total
}

// PaperCount returns the number of physical ballots (unweighted) held by
// candidate, used for display (a round record's papers_after).
func (l *Ledger) PaperCount(candidate ballotindex.CandidateID) int64 {
	var n int64
	for _, p := range l.parcels[candidate] {
		n += p.BallotCount()
	}
	return n
}

// DrainLast removes and returns the most recently received parcel held by
// candidate. Used for surplus distribution under the 2016+ rules, which
// transfers only the parcel that put the candidate over quota. Returns
// ok=false if the candidate holds no parcels.
func (l *Ledger) DrainLast(candidate ballotindex.CandidateID) (Parcel, bool) {
	ps := l.parcels[candidate]
	if len(ps) == 0 {
		return Parcel{}, false
	}
	last := ps[len(ps)-1]
	l.parcels[candidate] = ps[:len(ps)-1]
	return last, true
}

// DrainAll removes and returns every parcel held by candidate, ordered
// ascending by transfer value; parcels sharing a transfer value keep their
// relative order of receipt. This is the "order of receipt" rule an
// exclusion redistributes under.
func (l *Ledger) DrainAll(candidate ballotindex.CandidateID) []Parcel {
	ps := l.parcels[candidate]
	delete(l.parcels, candidate)
	out := make([]Parcel, len(ps))
	copy(out, ps)
	stableSortByTV(out)
	return out
}

// stableSortByTV sorts parcels ascending by transfer value with a stable
// insertion sort: the slices involved are small (one per distinct TV a
// candidate has ever received) so the O(n^2) worst case never matters, and
// stability is what preserves "order of receipt" for equal TVs.
func stableSortByTV(ps []Parcel) {
	for i := 1; i < len(ps); i++ {
		j := i
		for j > 0 && ps[j-1].TransferValue.Cmp(ps[j].TransferValue) > 0 {
			ps[j-1], ps[j] = ps[j], ps[j-1]
			j--
		}
	}
}

// IsEmpty reports whether candidate currently holds no parcels.
func (l *Ledger) IsEmpty(candidate ballotindex.CandidateID) bool {
	return len(l.parcels[candidate]) == 0
}

// Validate checks that no parcel in the ledger is empty and every transfer
// value lies in [0, 1], per the data model's Parcel invariant.
func (l *Ledger) Validate() error {
	one := ratio.FromInt(1)
	zero := ratio.Zero()
	for candidate, ps := range l.parcels {
		for i, p := range ps {
			if p.TransferValue.Cmp(zero) < 0 || p.TransferValue.Cmp(one) > 0 {
				return fmt.Errorf("ledger: candidate %d parcel %d has out-of-range transfer value %s", candidate, i, p.TransferValue.String())
			}
			if len(p.Contributions) == 0 {
				return fmt.Errorf("ledger: candidate %d parcel %d is empty", candidate, i)
			}
		}
	}
	return nil
}
