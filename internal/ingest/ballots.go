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
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"senatecount/internal/ballotindex"
	"senatecount/internal/ratio"
)

var bigOne = big.NewInt(1)

// RawBallot is one CSV row before formality adjudication: a weight (almost
// always 1; a GVT ticket's shared multiplicity is a large integer) and the
// preference sequence exactly as marked on the paper, which may be empty,
// short, or contain a candidate id more than once.
type RawBallot struct {
	Weight      ratio.Rational
	Preferences []ballotindex.CandidateID
}

// Scheme selects which formality rule Adjudicate applies, mirroring the
// two AEC counting eras original_source/dividebatur/senatecount.py
// dispatches between (SenateCountPre2015 vs SenateCountPost2015).
type Scheme int

const (
	// SchemeOptionalPreferential is the 2016+ savings-provision rule: a
	// ballot is formal if it expresses at least one preference for a
	// candidate still in the count; numbering may stop at the first
	// repeat or gap.
	SchemeOptionalPreferential Scheme = iota
	// SchemeGroupVotingTicket is the pre-2016 rule: formal only if every
	// candidate is given a distinct preference.
	SchemeGroupVotingTicket
)

// LoadBallots reads a CSV with header "weight,pref1,pref2,...". Short rows
// (fewer preference columns than the header promises) are padded with
// blanks; a blank, unparsable, or zero cell ends that ballot's preference
// sequence at that position, matching a voter who stopped numbering or
// made an error partway down the paper.
func LoadBallots(r io.Reader) ([]RawBallot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading ballot header: %w", err)
	}
	if len(header) < 2 || header[0] != "weight" {
		return nil, fmt.Errorf("ingest: ballot file: expected header starting with \"weight\", got %v", header)
	}

	var out []RawBallot
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading ballot row %d: %w", line, err)
		}
		line++

		weight, err := ratio.Parse(row[0])
		if err != nil {
			return nil, fmt.Errorf("ingest: ballot row %d: invalid weight %q: %w", line, row[0], err)
		}

		var prefs []ballotindex.CandidateID
		for _, cell := range row[1:] {
			if cell == "" {
				break
			}
			id, err := strconv.Atoi(cell)
			if err != nil || id <= 0 {
				break
			}
			prefs = append(prefs, ballotindex.CandidateID(id))
		}
		out = append(out, RawBallot{Weight: weight, Preferences: prefs})
	}
	return out, nil
}

// Adjudicate turns raw ballots into the formal preference sequences and
// integer multiplicities a ballotindex.Index is built from, applying the
// formality rule scheme names. candidates is the full set of valid
// candidate ids; a preference naming an id outside it, or repeating an
// earlier preference on the same ballot, truncates the ballot at that
// point exactly as a scrutineer would stop reading a spoiled paper.
//
// The counts and weights returned conserve the input: every rejected
// ballot's weight is folded into informalCount instead of silently
// dropped, so a caller can reconcile ingested against counted ballots.
func Adjudicate(raw []RawBallot, candidates map[ballotindex.CandidateID]bool, scheme Scheme) (seqs [][]ballotindex.CandidateID, weights []int64, informalCount int64, err error) {
	for i, b := range raw {
		n, convErr := wholeWeight(b.Weight)
		if convErr != nil {
			return nil, nil, 0, fmt.Errorf("ingest: ballot %d: %w", i, convErr)
		}
		if n <= 0 {
			return nil, nil, 0, fmt.Errorf("ingest: ballot %d: non-positive weight %s", i, b.Weight.String())
		}

		cleaned := cleanPreferences(b.Preferences, candidates)

		formal := false
		switch scheme {
		case SchemeGroupVotingTicket:
			formal = len(cleaned) == len(candidates)
		default:
			formal = len(cleaned) >= 1
		}

		if !formal {
			informalCount += n
			continue
		}
		seqs = append(seqs, cleaned)
		weights = append(weights, n)
	}
	return seqs, weights, informalCount, nil
}

// cleanPreferences truncates prefs at the first entry that repeats an
// earlier candidate or names a candidate outside the known set.
func cleanPreferences(prefs []ballotindex.CandidateID, candidates map[ballotindex.CandidateID]bool) []ballotindex.CandidateID {
	seen := make(map[ballotindex.CandidateID]bool, len(prefs))
	out := make([]ballotindex.CandidateID, 0, len(prefs))
	for _, c := range prefs {
		if !candidates[c] || seen[c] {
			break
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// wholeWeight converts a Rational ballot weight to an integer ballot count,
// erroring if it is not a whole number: a fractional physical ballot count
// is a data error, not a savings-provision case.
func wholeWeight(w ratio.Rational) (int64, error) {
	f := w.Floor()
	if !ratio.FromBigInts(f, bigOne).Equal(w) {
		return 0, fmt.Errorf("weight %s is not a whole number", w.String())
	}
	if !f.IsInt64() {
		return 0, fmt.Errorf("weight %s overflows int64", w.String())
	}
	return f.Int64(), nil
}
