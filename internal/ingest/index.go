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

package ingest

import (
	"fmt"

	"senatecount/internal/ballotindex"
	"senatecount/internal/count"
)

// BuildIndex is the one call a caller needs after loading candidates and
// ballots: it adjudicates formality and folds the result into a ballot
// index ready to hand to count.New. informalCount is returned so the
// caller can report it alongside the count's own summary.
func BuildIndex(candidateList []count.Candidate, raw []RawBallot, scheme Scheme) (*ballotindex.Index, int64, error) {
	known := make(map[ballotindex.CandidateID]bool, len(candidateList))
	for _, c := range candidateList {
		known[c.ID] = true
	}
	seqs, weights, informal, err := Adjudicate(raw, known, scheme)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: adjudication: %w", err)
	}
	idx, err := ballotindex.NewIndex(seqs, weights)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: building ballot index: %w", err)
	}
	return idx, informal, nil
}
