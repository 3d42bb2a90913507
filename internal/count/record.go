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

import "senatecount/internal/ballotindex"

// ElectedEntry records one candidate's election within a round.
type ElectedEntry struct {
	CandidateID ballotindex.CandidateID `json:"candidate_id"`
	Order       int                     `json:"order"`
}

// ExcludedEntry records one candidate's exclusion within a round. A bulk
// exclusion produces several of these in one round sharing contiguous
// Order values; a single exclusion always produces exactly one.
type ExcludedEntry struct {
	CandidateID ballotindex.CandidateID `json:"candidate_id"`
	Order       int                     `json:"order"`
}

// ParcelMove is one recipient's share of a transfer: Ballots is the
// unweighted physical ballot count, Weighted is Ballots times the transfer
// value, rendered as an exact "p/q" string.
type ParcelMove struct {
	To       ballotindex.CandidateID `json:"to"`
	Ballots  int64                   `json:"ballots"`
	Weighted string                  `json:"weighted"`
}

// Transfer is one parcel leaving one candidate, per §6's external schema.
// A surplus distribution produces exactly one Transfer; an exclusion
// produces one per parcel drained (one per distinct transfer value held),
// each its own sub-round per the mid-exclusion checkpointing rule.
type Transfer struct {
	From          ballotindex.CandidateID `json:"from"`
	TransferValue string                  `json:"transfer_value"`
	ParcelsMoved  []ParcelMove            `json:"parcels_moved"`
	Exhausted     int64                   `json:"exhausted"`
}

// RoundRecord is one append-only entry in the count transcript, emitted by
// exactly one call to Engine.Step.
type RoundRecord struct {
	Number       int                                 `json:"number"`
	Note         []string                            `json:"note"`
	Elected      []ElectedEntry                      `json:"elected"`
	Excluded     []ExcludedEntry                     `json:"excluded"`
	Transfers    []Transfer                          `json:"transfers"`
	TalliesAfter map[ballotindex.CandidateID]string  `json:"tallies_after"`
	PapersAfter  map[ballotindex.CandidateID]int64   `json:"papers_after"`
}
