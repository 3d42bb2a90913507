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

// Package count implements the Section 273 round engine: the state machine
// that advances a Senate count one round at a time, turning a ballot index
// and an oracle into an ordered list of elected candidates and a full,
// replayable transcript.
//
// An Engine is single-owner and single-threaded by design, not merely by
// omission: STV counting is inherently sequential (each round's actions
// depend on every prior round's tallies), unlike the teacher repo's
// striped-atomic, highly concurrent accumulator core. Running several
// counts side by side means running several independent Engine values,
// never sharing one across goroutines.
package count

import "senatecount/internal/ballotindex"

// Kind is the three-way state a candidate occupies for the life of a count.
type Kind int

const (
	Hopeful Kind = iota
	Elected
	Excluded
)

func (k Kind) String() string {
	switch k {
	case Hopeful:
		return "hopeful"
	case Elected:
		return "elected"
	case Excluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Status is a candidate's current position in the count. Order and Round are
// meaningless while Kind is Hopeful. Once Kind leaves Hopeful it never
// changes again, per the data model's invariant.
type Status struct {
	Kind  Kind
	Order int // 1-based position among Elected, or among Excluded
	Round int // round number the transition happened in
}

// Candidate is the immutable identity of one contestant.
type Candidate struct {
	ID    ballotindex.CandidateID
	Name  string
	Party string
}

// Phase names the engine's position in the state machine of §4.4.
type Phase int

const (
	AwaitingStart Phase = iota
	InRound
	Completed
)
