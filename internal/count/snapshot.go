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
	"fmt"

	"senatecount/internal/ballotindex"
	"senatecount/internal/ledger"
	"senatecount/internal/ratio"
	"senatecount/internal/tiebreak"
)

// SnapshotParcel is one parcel in a serialisable form: Contributions
// reference ballot groups by id, which is stable as long as the same
// ballot index rebuilds the engine being resumed.
type SnapshotParcel struct {
	Contributions []ballotindex.Contribution `json:"contributions"`
	TransferValue string                      `json:"transfer_value"`
}

// Snapshot is the engine's entire state, serialisable independently of any
// particular persistence backend: a Redis checkpoint or a file both hold
// exactly this. Resuming needs the original ballot index and oracle handed
// back in separately, since neither is itself engine state.
type Snapshot struct {
	Round       int                                           `json:"round"`
	Quota       int64                                         `json:"quota"`
	Vacancies   int                                           `json:"vacancies"`
	TotalFormal int64                                         `json:"total_formal"`
	Phase       Phase                                         `json:"phase"`
	Candidates  []Candidate                                   `json:"candidates"`
	Order       []ballotindex.CandidateID                     `json:"order"`
	Status      map[ballotindex.CandidateID]Status            `json:"status"`
	Elected     []ballotindex.CandidateID                     `json:"elected"`
	Excluded    []ballotindex.CandidateID                     `json:"excluded"`
	SurplusDone map[ballotindex.CandidateID]bool              `json:"surplus_done"`
	PrevTally   map[ballotindex.CandidateID]string            `json:"prev_tally"`
	Exhausted   string                                        `json:"exhausted"`
	Parcels     map[ballotindex.CandidateID][]SnapshotParcel  `json:"parcels"`
	Config      Config                                        `json:"config"`
}

// Snapshot captures the engine's complete state. The returned value shares
// no mutable memory with the engine: callers may serialise it at leisure.
func (e *Engine) Snapshot() Snapshot {
	status := make(map[ballotindex.CandidateID]Status, len(e.status))
	for c, s := range e.status {
		status[c] = *s
	}
	prevTally := make(map[ballotindex.CandidateID]string, len(e.prevTally))
	for c, t := range e.prevTally {
		prevTally[c] = t.String()
	}
	surplusDone := make(map[ballotindex.CandidateID]bool, len(e.surplusDone))
	for c, v := range e.surplusDone {
		surplusDone[c] = v
	}
	parcels := make(map[ballotindex.CandidateID][]SnapshotParcel, len(e.order))
	for _, c := range e.order {
		ps := e.ledger.Parcels(c)
		if len(ps) == 0 {
			continue
		}
		sp := make([]SnapshotParcel, len(ps))
		for i, p := range ps {
			sp[i] = SnapshotParcel{Contributions: append([]ballotindex.Contribution(nil), p.Contributions...), TransferValue: p.TransferValue.String()}
		}
		parcels[c] = sp
	}
	candidates := make([]Candidate, 0, len(e.order))
	for _, c := range e.order {
		candidates = append(candidates, e.candidates[c])
	}

	return Snapshot{
		Round:       e.round,
		Quota:       e.quota,
		Vacancies:   e.vacancies,
		TotalFormal: e.totalFormal,
		Phase:       e.phase,
		Candidates:  candidates,
		Order:       append([]ballotindex.CandidateID(nil), e.order...),
		Status:      status,
		Elected:     append([]ballotindex.CandidateID(nil), e.electedOrder...),
		Excluded:    append([]ballotindex.CandidateID(nil), e.excludedOrder...),
		SurplusDone: surplusDone,
		PrevTally:   prevTally,
		Exhausted:   e.exhausted.String(),
		Parcels:     parcels,
		Config:      e.cfg,
	}
}

// Restore rebuilds an Engine from a Snapshot, the same ballot index that
// produced it (ballot groups are referenced by id, not copied into the
// snapshot), and an oracle for any future ties. The transcript itself is
// not part of Snapshot; a resuming caller replays it separately from the
// persisted round records if it needs the full history.
func Restore(snap Snapshot, idx *ballotindex.Index, oracle tiebreak.Oracle) (*Engine, error) {
	e, err := New(snap.Candidates, snap.Vacancies, idx, oracle, snap.Config)
	if err != nil {
		return nil, fmt.Errorf("count: restoring snapshot: %w", err)
	}
	e.round = snap.Round
	e.quota = snap.Quota
	e.totalFormal = snap.TotalFormal
	e.phase = snap.Phase
	e.electedOrder = append([]ballotindex.CandidateID(nil), snap.Elected...)
	e.excludedOrder = append([]ballotindex.CandidateID(nil), snap.Excluded...)

	for c, s := range snap.Status {
		st := s
		e.status[c] = &st
	}
	for c, v := range snap.SurplusDone {
		e.surplusDone[c] = v
	}
	for c, s := range snap.PrevTally {
		v, err := ratio.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("count: restoring snapshot: candidate %d previous tally: %w", c, err)
		}
		e.prevTally[c] = v
	}
	if snap.Exhausted != "" {
		v, err := ratio.Parse(snap.Exhausted)
		if err != nil {
			return nil, fmt.Errorf("count: restoring snapshot: exhausted pile: %w", err)
		}
		e.exhausted = v
	}
	for c, sps := range snap.Parcels {
		for _, sp := range sps {
			tv, err := ratio.Parse(sp.TransferValue)
			if err != nil {
				return nil, fmt.Errorf("count: restoring snapshot: candidate %d parcel: %w", c, err)
			}
			e.ledger.Append(c, ledger.Parcel{Contributions: sp.Contributions, TransferValue: tv})
		}
	}
	return e, nil
}
