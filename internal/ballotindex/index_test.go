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

import "testing"

func seq(ids ...int) []CandidateID {
	out := make([]CandidateID, len(ids))
	for i, v := range ids {
		out[i] = CandidateID(v)
	}
	return out
}

func TestNewIndexFoldsDuplicates(t *testing.T) {
	idx, err := NewIndex([][]CandidateID{seq(1, 2), seq(1, 2), seq(2, 1)}, []int64{40, 30, 10})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if len(idx.Groups()) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(idx.Groups()))
	}
	if got := idx.TotalWeight(); got != 80 {
		t.Fatalf("TotalWeight = %d, want 80", got)
	}
}

func TestNewIndexRejectsDuplicateCandidate(t *testing.T) {
	_, err := NewIndex([][]CandidateID{seq(1, 1)}, []int64{10})
	if err == nil {
		t.Fatalf("expected error for repeated candidate in a ballot")
	}
}

func TestInitialDistributionAndAdvance(t *testing.T) {
	// 70x[A,B], 20x[C,A], 10x[B,C] from spec.md boundary scenario 2.
	A, B, C := CandidateID(1), CandidateID(2), CandidateID(3)
	idx, err := NewIndex([][]CandidateID{{A, B}, {C, A}, {B, C}}, []int64{70, 20, 10})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	initial := idx.InitialDistribution()
	if total(initial[A]) != 70 || total(initial[B]) != 10 || total(initial[C]) != 20 {
		t.Fatalf("unexpected initial distribution: %+v", initial)
	}

	// A is elected and excluded from further receipt; advance A's parcel.
	excluded := map[CandidateID]bool{A: true}
	to, exhausted := idx.Advance(initial[A], excluded)
	if total(to[B]) != 70 {
		t.Fatalf("expected all of A's 70 to flow to B, got %+v", to)
	}
	if len(exhausted) != 0 {
		t.Fatalf("expected no exhaustion, got %+v", exhausted)
	}
}

func TestAdvanceExhaustsWhenNoContinuingPreference(t *testing.T) {
	A, B := CandidateID(1), CandidateID(2)
	idx, err := NewIndex([][]CandidateID{{A, B}}, []int64{5})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	initial := idx.InitialDistribution()
	excluded := map[CandidateID]bool{A: true, B: true}
	to, exhausted := idx.Advance(initial[A], excluded)
	if len(to) != 0 {
		t.Fatalf("expected nothing to continue, got %+v", to)
	}
	if total(exhausted) != 5 {
		t.Fatalf("expected 5 exhausted, got %d", total(exhausted))
	}
}

func total(cs []Contribution) int64 {
	var n int64
	for _, c := range cs {
		n += c.Count
	}
	return n
}
