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

package ledger

import (
	"testing"

	"senatecount/internal/ballotindex"
	"senatecount/internal/ratio"
)

const candidateA ballotindex.CandidateID = 1

func contrib(group, count int) ballotindex.Contribution {
	return ballotindex.Contribution{Group: ballotindex.GroupID(group), Count: int64(count)}
}

func TestAppendAndTally(t *testing.T) {
	l := New()
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(1, 70)}, TransferValue: ratio.FromInt(1)})
	if got := l.Tally(candidateA).String(); got != "70" {
		t.Fatalf("Tally = %s, want 70", got)
	}
	if got := l.PaperCount(candidateA); got != 70 {
		t.Fatalf("PaperCount = %d, want 70", got)
	}
}

func TestDrainLastOnlyTakesMostRecent(t *testing.T) {
	l := New()
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(1, 50)}, TransferValue: ratio.FromInt(1)})
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(2, 10)}, TransferValue: ratio.FromFrac(1, 2)})
	last, ok := l.DrainLast(candidateA)
	if !ok {
		t.Fatalf("expected a parcel")
	}
	if last.BallotCount() != 10 {
		t.Fatalf("expected most recently appended parcel drained, got %+v", last)
	}
	if got := l.PaperCount(candidateA); got != 50 {
		t.Fatalf("expected 50 remaining, got %d", got)
	}
}

func TestDrainAllOrdersAscendingByTVThenReceipt(t *testing.T) {
	l := New()
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(1, 10)}, TransferValue: ratio.FromFrac(1, 2)})
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(2, 20)}, TransferValue: ratio.FromInt(1)})
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(3, 5)}, TransferValue: ratio.FromFrac(1, 2)})

	drained := l.DrainAll(candidateA)
	if len(drained) != 3 {
		t.Fatalf("expected 3 parcels drained, got %d", len(drained))
	}
	if !drained[0].TransferValue.Equal(ratio.FromFrac(1, 2)) || drained[0].BallotCount() != 10 {
		t.Fatalf("expected first drained to be the earlier 1/2-TV parcel, got %+v", drained[0])
	}
	if !drained[1].TransferValue.Equal(ratio.FromFrac(1, 2)) || drained[1].BallotCount() != 5 {
		t.Fatalf("expected second drained to be the later 1/2-TV parcel (receipt order), got %+v", drained[1])
	}
	if !drained[2].TransferValue.Equal(ratio.FromInt(1)) {
		t.Fatalf("expected TV=1 parcel drained last, got %+v", drained[2])
	}
	if !l.IsEmpty(candidateA) {
		t.Fatalf("expected candidate to hold no parcels after DrainAll")
	}
}

func TestValidateRejectsOutOfRangeTV(t *testing.T) {
	l := New()
	l.Append(candidateA, Parcel{Contributions: []ballotindex.Contribution{contrib(1, 10)}, TransferValue: ratio.FromInt(2)})
	if err := l.Validate(); err == nil {
		t.Fatalf("expected validation error for TV > 1")
	}
}
