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
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"senatecount/internal/ballotindex"
	"senatecount/internal/tiebreak"
)

// automationEntry is one fixed tie-break answer, the JSON shape spec.md §6
// calls "automation": a replayable response to a named statutory tie.
type automationEntry struct {
	Round      int                       `json:"round"`
	Context    tiebreak.Context          `json:"context"`
	Candidates []ballotindex.CandidateID `json:"candidates"`
	Answer     ballotindex.CandidateID   `json:"answer"`
}

// LoadAutomation reads a JSON array of automation entries and returns a
// TableOracle pre-loaded with them, for reproducing a known AEC
// declaration or a test fixture exactly. An empty file, or an empty JSON
// array, is valid: the resulting oracle simply errors the first time a tie
// it has no entry for is reached, per tiebreak.TableOracle.Resolve.
func LoadAutomation(r io.Reader) (*tiebreak.TableOracle, error) {
	var entries []automationEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ingest: decoding automation file: %w", err)
	}
	oracle := tiebreak.NewTableOracle()
	for _, e := range entries {
		oracle.Record(e.Round, e.Context, e.Candidates, e.Answer)
	}
	return oracle, nil
}
