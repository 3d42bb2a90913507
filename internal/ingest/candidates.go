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

// Package ingest is the external collaborator spec.md §6 describes but
// deliberately excludes from the core: it turns CSV files into the
// candidate list and formal ballots the round engine consumes. It owns
// formality adjudication, so internal/count never has to know a ballot
// paper existed before it became a clean preference sequence.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"senatecount/internal/ballotindex"
	"senatecount/internal/count"
)

// LoadCandidates reads a CSV with header "id,name,party" and returns one
// count.Candidate per data row, in file order.
func LoadCandidates(r io.Reader) ([]count.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading candidate header: %w", err)
	}
	idCol, nameCol, partyCol, err := columnIndices(header, "id", "name", "party")
	if err != nil {
		return nil, fmt.Errorf("ingest: candidate file: %w", err)
	}

	var out []count.Candidate
	seen := make(map[ballotindex.CandidateID]bool)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading candidate row %d: %w", line, err)
		}
		line++

		id, err := strconv.Atoi(row[idCol])
		if err != nil {
			return nil, fmt.Errorf("ingest: candidate row %d: invalid id %q: %w", line, row[idCol], err)
		}
		cid := ballotindex.CandidateID(id)
		if seen[cid] {
			return nil, fmt.Errorf("ingest: candidate row %d: duplicate candidate id %d", line, id)
		}
		seen[cid] = true
		out = append(out, count.Candidate{
			ID:    cid,
			Name:  row[nameCol],
			Party: row[partyCol],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ingest: candidate file has no data rows")
	}
	return out, nil
}

// columnIndices finds the position of each wanted column name in header,
// case-sensitive, erroring with the missing name on the first miss.
func columnIndices(header []string, wanted ...string) (int, int, int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	cols := make([]int, len(wanted))
	for i, w := range wanted {
		c, ok := idx[w]
		if !ok {
			return 0, 0, 0, fmt.Errorf("missing column %q", w)
		}
		cols[i] = c
	}
	return cols[0], cols[1], cols[2], nil
}
