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

// initialDistribution implements §4.4 item 1: every ballot lands on its
// first preference at TV=1, and the quota is fixed for the remainder of the
// count.
func (e *Engine) initialDistribution(rec *RoundRecord) error {
	dist := e.idx.InitialDistribution()
	for _, c := range e.order {
		contribs, ok := dist[c]
		if !ok {
			continue
		}
		e.ledger.Append(c, ledger.Parcel{Contributions: contribs, TransferValue: ratio.FromInt(1)})
	}
	e.quota = e.totalFormal/int64(e.vacancies+1) + 1
	rec.Note = append(rec.Note, fmt.Sprintf("quota set to %d (Droop, %d formal votes, %d vacancies)", e.quota, e.totalFormal, e.vacancies))

	_, err := e.checkAndElect(rec)
	return err
}

// checkAndElect implements §4.4 item 2: every continuing candidate whose
// tally has reached quota is declared elected, highest tally first. Returns
// the candidates newly elected this call.
func (e *Engine) checkAndElect(rec *RoundRecord) ([]ballotindex.CandidateID, error) {
	quotaR := ratio.FromInt(e.quota)
	var reached []ballotindex.CandidateID
	for _, c := range e.order {
		if e.status[c].Kind != Hopeful {
			continue
		}
		if e.currentTally(c).Cmp(quotaR) >= 0 {
			reached = append(reached, c)
		}
	}
	if len(reached) == 0 {
		return nil, nil
	}
	sortAscendingIDs(reached)
	ordered, err := e.resolveOrder(reached, e.currentTally, tiebreak.ElectionOrderTie, false)
	if err != nil {
		return nil, err
	}
	for _, c := range ordered {
		order := len(e.electedOrder) + 1
		e.status[c] = &Status{Kind: Elected, Order: order, Round: e.round}
		e.electedOrder = append(e.electedOrder, c)
		rec.Elected = append(rec.Elected, ElectedEntry{CandidateID: c, Order: order})
		rec.Note = append(rec.Note, fmt.Sprintf("candidate %d elected (order %d)", c, order))
		if e.electedCount() == e.vacancies {
			e.phase = Completed
			rec.Note = append(rec.Note, "count complete: all vacancies filled")
			break
		}
	}
	return ordered, nil
}

// largestSurplusCandidate implements the selection half of §4.4 item 3:
// among elected candidates who still hold an undistributed surplus, the one
// with the largest surplus goes first.
func (e *Engine) largestSurplusCandidate() (ballotindex.CandidateID, bool) {
	quotaR := ratio.FromInt(e.quota)
	var pending []ballotindex.CandidateID
	for _, c := range e.order {
		if e.status[c].Kind != Elected || e.surplusDone[c] {
			continue
		}
		if e.currentTally(c).Cmp(quotaR) > 0 {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return 0, false
	}
	sortAscendingIDs(pending)
	ordered, err := e.resolveOrder(pending, e.currentTally, tiebreak.SurplusOrderTie, false)
	if err != nil || len(ordered) == 0 {
		return pending[0], true
	}
	return ordered[0], true
}

// distributeSurplus implements the mechanics of §4.4 item 3 and the
// transfer-value formula of §4.1: drain only the last parcel the candidate
// received, compute its transfer value from the surplus over the ballots it
// carries, cap it at the incoming transfer value, and redistribute. The
// part of that parcel's value not transferred stays with the candidate, as
// the same ballots at the remaining transfer value, so their tally keeps the
// quota and total weight is conserved.
func (e *Engine) distributeSurplus(rec *RoundRecord, c ballotindex.CandidateID) error {
	quotaR := ratio.FromInt(e.quota)
	totalTally := e.currentTally(c)
	surplus := ratio.Sub(totalTally, quotaR)
	e.surplusDone[c] = true

	last, ok := e.ledger.DrainLast(c)
	if !ok {
		return &InvariantViolation{Name: "surplus_without_parcel", Round: e.round, Got: fmt.Sprintf("candidate %d has surplus %s but holds no parcel", c, surplus.String())}
	}
	b := last.BallotCount()
	if b <= 0 {
		return &InvariantViolation{Name: "surplus_parcel_empty", Round: e.round, Got: fmt.Sprintf("candidate %d's last parcel carries no ballots", c)}
	}
	outTV := ratio.Quo(surplus, ratio.FromInt(b))
	if outTV.Cmp(last.TransferValue) > 0 {
		outTV = last.TransferValue
		rec.Note = append(rec.Note, fmt.Sprintf("transfer value from candidate %d capped at incoming value %s", c, outTV.String()))
	}
	rec.Note = append(rec.Note, fmt.Sprintf("surplus of %s distributed from candidate %d at transfer value %s", surplus.String(), c, outTV.String()))
	if keepTV := ratio.Sub(last.TransferValue, outTV); keepTV.Sign() > 0 {
		e.ledger.Append(c, ledger.Parcel{Contributions: last.Contributions, TransferValue: keepTV})
	}
	return e.transferParcel(rec, c, last.Contributions, outTV)
}

// bulkExclusionSet implements the eligibility test of §4.4 item 4: the
// largest k such that the bottom k continuing candidates' tallies sum to
// strictly less than both the (k+1)-th candidate's tally and any surplus
// still undistributed.
func (e *Engine) bulkExclusionSet() ([]ballotindex.CandidateID, bool) {
	hopefuls := e.continuingHopefuls()
	if len(hopefuls) < e.cfg.BulkExclusionMinimum+1 {
		return nil, false
	}
	sortAscendingTally(hopefuls, e.currentTally)

	minSurplus, hasSurplus := e.minPendingSurplus()

	for k := len(hopefuls) - 1; k >= e.cfg.BulkExclusionMinimum; k-- {
		if !e.exclusionAllowed(k) {
			continue
		}
		sum := ratio.Zero()
		for i := 0; i < k; i++ {
			sum = ratio.Add(sum, e.currentTally(hopefuls[i]))
		}
		if sum.Cmp(e.currentTally(hopefuls[k])) >= 0 {
			continue
		}
		if hasSurplus && sum.Cmp(minSurplus) >= 0 {
			continue
		}
		return append([]ballotindex.CandidateID(nil), hopefuls[:k]...), true
	}
	return nil, false
}

func (e *Engine) minPendingSurplus() (ratio.Rational, bool) {
	quotaR := ratio.FromInt(e.quota)
	found := false
	min := ratio.Zero()
	for _, c := range e.order {
		if e.status[c].Kind != Elected || e.surplusDone[c] {
			continue
		}
		s := ratio.Sub(e.currentTally(c), quotaR)
		if s.Sign() <= 0 {
			continue
		}
		if !found || s.Cmp(min) < 0 {
			min, found = s, true
		}
	}
	return min, found
}

// bulkExclude implements §4.4 item 4: exclude every candidate in set
// simultaneously, in one round, ordered among themselves by ascending
// tally (ties by oracle), then redistribute each excluded candidate's
// parcels in turn.
//
// §273(13) admits more than one reading of the bulk-exclusion test; this
// engine applies the aggregate reading given directly in spec.md's boundary
// scenario 4 (sum of the bottom k strictly below the next candidate and any
// undistributed surplus) rather than the AEC's fuller pairwise variant. That
// choice is recorded in the round note, per the Open Question in §9.
func (e *Engine) bulkExclude(rec *RoundRecord, set []ballotindex.CandidateID) error {
	ordered, err := e.resolveOrder(set, e.currentTally, tiebreak.BulkExclusionOrderTie, true)
	if err != nil {
		return err
	}
	rec.Note = append(rec.Note, fmt.Sprintf("bulk exclusion applied (simplified aggregate reading of section 273(13)) to candidates %v", ordered))
	for _, c := range ordered {
		order := len(e.excludedOrder) + 1
		e.status[c] = &Status{Kind: Excluded, Order: order, Round: e.round}
		e.excludedOrder = append(e.excludedOrder, c)
		rec.Excluded = append(rec.Excluded, ExcludedEntry{CandidateID: c, Order: order})
		if err := e.drainAndRedistribute(rec, c); err != nil {
			return err
		}
	}
	return nil
}

// singleExclude implements §4.4 item 5: exclude the lowest-tallied
// continuing candidate (statutory tie-break: smallest in the previous
// round, then oracle), then redistribute their parcels one at a time in
// ascending transfer-value order, checkpointing for new elections after
// each parcel.
func (e *Engine) singleExclude(rec *RoundRecord) error {
	hopefuls := e.continuingHopefuls()
	ordered, err := e.resolveOrder(hopefuls, e.currentTally, tiebreak.ExclusionTie, true)
	if err != nil {
		return err
	}
	c := ordered[0]
	order := len(e.excludedOrder) + 1
	e.status[c] = &Status{Kind: Excluded, Order: order, Round: e.round}
	e.excludedOrder = append(e.excludedOrder, c)
	rec.Excluded = append(rec.Excluded, ExcludedEntry{CandidateID: c, Order: order})
	rec.Note = append(rec.Note, fmt.Sprintf("candidate %d excluded (order %d)", c, order))
	return e.drainAndRedistribute(rec, c)
}

// drainAndRedistribute empties every parcel held by the newly non-continuing
// candidate c, redistributing each one (already yielded in ascending TV,
// ties by receipt order, by Ledger.DrainAll) as its own Transfer, and
// checkpoints for mid-exclusion elections after each one per §4.4 item 5 and
// the Design Notes on mid-exclusion elections. A candidate elected mid-way
// through is added to the skip set immediately, so later parcels in the same
// exclusion never reach them.
func (e *Engine) drainAndRedistribute(rec *RoundRecord, c ballotindex.CandidateID) error {
	parcels := e.ledger.DrainAll(c)
	for _, p := range parcels {
		if err := e.transferParcel(rec, c, p.Contributions, p.TransferValue); err != nil {
			return err
		}
		if _, err := e.checkAndElect(rec); err != nil {
			return err
		}
		if e.phase == Completed {
			return nil
		}
	}
	return nil
}

// lastVacancy implements §4.4 item 6: with one vacancy and two continuing
// candidates left, the higher tally wins outright with no further transfer.
func (e *Engine) lastVacancy(rec *RoundRecord) error {
	hopefuls := e.continuingHopefuls()
	ordered, err := e.resolveOrder(hopefuls, e.currentTally, tiebreak.LastVacancyTie, false)
	if err != nil {
		return err
	}
	winner := ordered[0]
	order := len(e.electedOrder) + 1
	e.status[winner] = &Status{Kind: Elected, Order: order, Round: e.round}
	e.electedOrder = append(e.electedOrder, winner)
	rec.Elected = append(rec.Elected, ElectedEntry{CandidateID: winner, Order: order})
	rec.Note = append(rec.Note, fmt.Sprintf("last vacancy rule invoked: candidate %d elected without further transfer", winner))
	if e.electedCount() == e.vacancies {
		e.phase = Completed
		rec.Note = append(rec.Note, "count complete: all vacancies filled")
	}
	return nil
}

// exhaustAll implements §4.4 item 7: once continuing candidates exactly
// fill the remaining vacancies, every one of them is declared elected,
// highest tally first.
func (e *Engine) exhaustAll(rec *RoundRecord) error {
	hopefuls := e.continuingHopefuls()
	ordered, err := e.resolveOrder(hopefuls, e.currentTally, tiebreak.ElectionOrderTie, false)
	if err != nil {
		return err
	}
	rec.Note = append(rec.Note, "exhaust-all rule invoked: remaining continuing candidates fill remaining vacancies")
	for _, c := range ordered {
		order := len(e.electedOrder) + 1
		e.status[c] = &Status{Kind: Elected, Order: order, Round: e.round}
		e.electedOrder = append(e.electedOrder, c)
		rec.Elected = append(rec.Elected, ElectedEntry{CandidateID: c, Order: order})
	}
	e.phase = Completed
	rec.Note = append(rec.Note, "count complete: all vacancies filled")
	return nil
}

// transferParcel moves one parcel's worth of contributions from candidate
// from, at transferValue, to whichever continuing candidate each ballot's
// next preference names, or to the exhausted pile if none remains. It
// records the resulting Transfer and updates the ledger and exhausted pile.
func (e *Engine) transferParcel(rec *RoundRecord, from ballotindex.CandidateID, contribs []ballotindex.Contribution, transferValue ratio.Rational) error {
	skip := e.nonContinuingSet()
	to, exhausted := e.idx.Advance(contribs, skip)

	recipients := make([]ballotindex.CandidateID, 0, len(to))
	for c := range to {
		recipients = append(recipients, c)
	}
	sortAscendingIDs(recipients)

	t := Transfer{From: from, TransferValue: transferValue.String()}
	for _, recipient := range recipients {
		recContribs := to[recipient]
		e.ledger.Append(recipient, ledger.Parcel{Contributions: recContribs, TransferValue: transferValue})
		var ballots int64
		for _, c := range recContribs {
			ballots += c.Count
		}
		weighted := ratio.Mul(ratio.FromInt(ballots), transferValue)
		t.ParcelsMoved = append(t.ParcelsMoved, ParcelMove{To: recipient, Ballots: ballots, Weighted: weighted.String()})
	}

	var exhaustedBallots int64
	for _, c := range exhausted {
		exhaustedBallots += c.Count
	}
	if exhaustedBallots > 0 {
		e.exhausted = ratio.Add(e.exhausted, ratio.Mul(ratio.FromInt(exhaustedBallots), transferValue))
	}
	t.Exhausted = exhaustedBallots
	rec.Transfers = append(rec.Transfers, t)
	return nil
}

// nonContinuingSet returns every candidate the ballot index should skip:
// elected and excluded candidates never receive another ballot, per §4.2's
// advance operation.
func (e *Engine) nonContinuingSet() map[ballotindex.CandidateID]bool {
	set := make(map[ballotindex.CandidateID]bool, len(e.electedOrder)+len(e.excludedOrder))
	for _, c := range e.order {
		if e.status[c].Kind != Hopeful {
			set[c] = true
		}
	}
	return set
}

func (e *Engine) continuingHopefuls() []ballotindex.CandidateID {
	var out []ballotindex.CandidateID
	for _, c := range e.order {
		if e.status[c].Kind == Hopeful {
			out = append(out, c)
		}
	}
	return out
}

// sortAscendingTally orders ids ascending by key using a stable insertion
// sort; the continuing-candidate lists this runs over are small.
func sortAscendingTally(ids []ballotindex.CandidateID, key func(ballotindex.CandidateID) ratio.Rational) {
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 && key(ids[j-1]).Cmp(key(ids[j])) > 0 {
			ids[j-1], ids[j] = ids[j], ids[j-1]
			j--
		}
	}
}
