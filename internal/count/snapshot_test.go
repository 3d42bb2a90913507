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
	"testing"

	"senatecount/internal/ballotindex"
	"senatecount/internal/tiebreak"
)

// TestSnapshotRestoreResumesMidCount checks that an engine restored
// mid-count from its own Snapshot produces exactly the same remaining
// transcript as one that ran straight through without ever snapshotting.
func TestSnapshotRestoreResumesMidCount(t *testing.T) {
	idx := mustIndex(t, [][]ballotindex.CandidateID{seq(1, 2), seq(3, 1), seq(2, 3)}, []int64{70, 20, 10})

	reference := newEngine(t, candSet(1, 2, 3), 2, idx, Config{})
	if _, err := reference.Step(); err != nil {
		t.Fatalf("reference Step 1: %v", err)
	}
	wantRec2, err := reference.Step()
	if err != nil {
		t.Fatalf("reference Step 2: %v", err)
	}

	resumable := newEngine(t, candSet(1, 2, 3), 2, idx, Config{})
	if _, err := resumable.Step(); err != nil {
		t.Fatalf("resumable Step 1: %v", err)
	}
	snap := resumable.Snapshot()

	restored, err := Restore(snap, idx, tiebreak.LowestIDOracle{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	gotRec2, err := restored.Step()
	if err != nil {
		t.Fatalf("restored Step 2: %v", err)
	}

	if len(gotRec2.Elected) != len(wantRec2.Elected) || gotRec2.Elected[0] != wantRec2.Elected[0] {
		t.Fatalf("elected after resume = %+v, want %+v", gotRec2.Elected, wantRec2.Elected)
	}
	if restored.Quota() != reference.Quota() {
		t.Fatalf("quota after resume = %d, want %d", restored.Quota(), reference.Quota())
	}
	for _, c := range []ballotindex.CandidateID{1, 2, 3} {
		got := gotRec2.TalliesAfter[c]
		want := wantRec2.TalliesAfter[c]
		if got != want {
			t.Fatalf("candidate %d tally after resume = %s, want %s", c, got, want)
		}
	}
	if restored.Phase() != reference.Phase() {
		t.Fatalf("phase after resume = %v, want %v", restored.Phase(), reference.Phase())
	}
}
