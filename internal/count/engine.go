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
	"sort"

	"senatecount/internal/ballotindex"
	"senatecount/internal/ledger"
	"senatecount/internal/ratio"
	"senatecount/internal/tiebreak"
)

// Config carries the policy decisions §9's Open Questions require an
// implementation to make explicit rather than hard-code silently.
type Config struct {
	// LastVacancyBeforeSurplus, when true, lets the last-vacancy rule
	// preempt a pending surplus the moment its own condition holds. When
	// false (the default), a pending surplus is always distributed before
	// the last-vacancy rule is invoked, following the priority order of
	// §4.4 and boundary scenario 2.
	LastVacancyBeforeSurplus bool

	// BulkExclusionMinimum is the smallest k the bulk-exclusion action
	// (§4.4 item 4) will act on; k=1 is left to ordinary single exclusion,
	// since the two produce an identical transcript for one candidate.
	// Zero defaults to 2.
	BulkExclusionMinimum int
}

// Engine is the Section 273 round-engine state machine: a single-owner,
// single-threaded object over one immutable ballot index. See §5 for the
// concurrency model this follows.
type Engine struct {
	idx    *ballotindex.Index
	ledger *ledger.Ledger
	oracle tiebreak.Oracle
	cfg    Config

	candidates map[ballotindex.CandidateID]Candidate
	order      []ballotindex.CandidateID // stable iteration order, input order
	status     map[ballotindex.CandidateID]*Status

	vacancies   int
	totalFormal int64
	quota       int64

	phase Phase
	round int

	electedOrder  []ballotindex.CandidateID
	excludedOrder []ballotindex.CandidateID
	surplusDone   map[ballotindex.CandidateID]bool

	prevTally map[ballotindex.CandidateID]ratio.Rational

	exhausted       ratio.Rational
	exhaustedPapers int64

	transcript []*RoundRecord
}

// New constructs an engine over candidates, vacancies, and a ballot index,
// consulting oracle for any tie statutory predecessor-round totals cannot
// resolve. It performs the InputRejected checks of §7 before returning.
func New(candidateList []Candidate, vacancies int, idx *ballotindex.Index, oracle tiebreak.Oracle, cfg Config) (*Engine, error) {
	if len(candidateList) == 0 {
		return nil, &InputRejected{Reason: "no candidates"}
	}
	if vacancies <= 0 {
		return nil, &InputRejected{Reason: "vacancies must be positive"}
	}
	if vacancies >= len(candidateList) {
		return nil, &InputRejected{Reason: "vacancies must be fewer than the number of candidates"}
	}
	if idx.TotalWeight() <= 0 {
		return nil, &InputRejected{Reason: "zero formal ballots"}
	}
	if cfg.BulkExclusionMinimum <= 0 {
		cfg.BulkExclusionMinimum = 2
	}

	candidates := make(map[ballotindex.CandidateID]Candidate, len(candidateList))
	order := make([]ballotindex.CandidateID, 0, len(candidateList))
	status := make(map[ballotindex.CandidateID]*Status, len(candidateList))
	for _, c := range candidateList {
		if _, dup := candidates[c.ID]; dup {
			return nil, &InputRejected{Reason: fmt.Sprintf("duplicate candidate id %d", c.ID)}
		}
		candidates[c.ID] = c
		order = append(order, c.ID)
		status[c.ID] = &Status{Kind: Hopeful}
	}
	for _, g := range idx.Groups() {
		for _, pref := range g.Preferences {
			if _, ok := candidates[pref]; !ok {
				return nil, &InputRejected{Reason: fmt.Sprintf("ballot group %d references unknown candidate %d", g.ID, pref)}
			}
		}
	}

	return &Engine{
		idx:         idx,
		ledger:      ledger.New(),
		oracle:      oracle,
		cfg:         cfg,
		candidates:  candidates,
		order:       order,
		status:      status,
		vacancies:   vacancies,
		totalFormal: idx.TotalWeight(),
		phase:       AwaitingStart,
		surplusDone: make(map[ballotindex.CandidateID]bool),
		prevTally:   make(map[ballotindex.CandidateID]ratio.Rational),
		exhausted:   ratio.Zero(),
	}, nil
}

// Phase reports the engine's current position in the state machine.
func (e *Engine) Phase() Phase { return e.phase }

// Round reports the number of the most recently completed round (0 before
// the first Step).
func (e *Engine) Round() int { return e.round }

// Quota returns the fixed quota, valid only once round 1 has run.
func (e *Engine) Quota() int64 { return e.quota }

// Transcript returns every RoundRecord emitted so far, in order.
func (e *Engine) Transcript() []*RoundRecord { return e.transcript }

// Elected returns the candidates declared elected so far, in order of
// election.
func (e *Engine) Elected() []ballotindex.CandidateID {
	return append([]ballotindex.CandidateID(nil), e.electedOrder...)
}

// Status returns the current status of candidate, or false if unknown.
func (e *Engine) Status(c ballotindex.CandidateID) (Status, bool) {
	s, ok := e.status[c]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// Step advances the count by exactly one round, per §4.4's state machine,
// and returns the RoundRecord produced. It is an error to call Step once the
// engine has reached Completed.
func (e *Engine) Step() (*RoundRecord, error) {
	if e.phase == Completed {
		return nil, fmt.Errorf("count: Step called after count completed at round %d", e.round)
	}
	e.round++
	e.phase = InRound
	rec := &RoundRecord{Number: e.round}

	if e.round == 1 {
		if err := e.initialDistribution(rec); err != nil {
			return nil, err
		}
	} else if err := e.stepAfterRoundOne(rec); err != nil {
		return nil, err
	}

	if err := e.checkWeightConservation(); err != nil {
		return nil, err
	}
	e.fillTallySnapshot(rec)
	e.snapshotPrevRound()
	e.transcript = append(e.transcript, rec)
	return rec, nil
}

// stepAfterRoundOne implements the priority-ordered primary actions of
// §4.4 items 2 through 7 for every round after the first.
func (e *Engine) stepAfterRoundOne(rec *RoundRecord) error {
	if _, err := e.checkAndElect(rec); err != nil {
		return err
	}
	if len(rec.Elected) > 0 {
		return nil
	}

	surplusCandidate, hasSurplus := e.largestSurplusCandidate()
	lastVacancyCond := e.vacanciesRemaining() == 1 && e.continuingCount() == 2

	switch {
	case hasSurplus && (!e.cfg.LastVacancyBeforeSurplus || !lastVacancyCond):
		if err := e.distributeSurplus(rec, surplusCandidate); err != nil {
			return err
		}
	default:
		if bulkSet, ok := e.bulkExclusionSet(); ok {
			if err := e.bulkExclude(rec, bulkSet); err != nil {
				return err
			}
		} else if e.exclusionAllowed(1) && e.hasHopeful() {
			if err := e.singleExclude(rec); err != nil {
				return err
			}
		} else if lastVacancyCond {
			if err := e.lastVacancy(rec); err != nil {
				return err
			}
			return nil
		} else if e.continuingCount() == e.vacanciesRemaining() {
			if err := e.exhaustAll(rec); err != nil {
				return err
			}
			return nil
		} else {
			return &DegenerateCount{Round: e.round, ContinuingCount: e.continuingCount(), VacanciesRemaining: e.vacanciesRemaining()}
		}
	}

	if _, err := e.checkAndElect(rec); err != nil {
		return err
	}
	return nil
}

func (e *Engine) vacanciesRemaining() int {
	return e.vacancies - len(e.electedOrder)
}

// exclusionAllowed reports whether excluding k continuing candidates right
// now is consistent with the priority ladder: it must not drop continuing
// candidates below the remaining vacancies, and it must not produce exactly
// the two-candidates-for-the-last-seat state, which §4.4 item 6 handles
// directly rather than through a further exclusion.
func (e *Engine) exclusionAllowed(k int) bool {
	vacRemaining := e.vacanciesRemaining()
	if vacRemaining == 1 && e.continuingCount() == 2 {
		return false
	}
	return e.continuingCount()-k >= vacRemaining
}

func (e *Engine) continuingCount() int {
	n := 0
	for _, c := range e.order {
		if e.status[c].Kind == Hopeful {
			n++
		}
	}
	return n
}

func (e *Engine) hasHopeful() bool {
	return e.continuingCount() > 0
}

func (e *Engine) electedCount() int { return len(e.electedOrder) }

// currentTally returns a candidate's live rational tally: for a Hopeful
// candidate this is their ledger sum; for Elected or Excluded it remains
// whatever the ledger holds after their one-time surplus distribution or
// full drain, which never changes again because the ballot index never
// routes further ballots to a non-continuing candidate.
func (e *Engine) currentTally(c ballotindex.CandidateID) ratio.Rational {
	return e.ledger.Tally(c)
}

func (e *Engine) fillTallySnapshot(rec *RoundRecord) {
	rec.TalliesAfter = make(map[ballotindex.CandidateID]string, len(e.order))
	rec.PapersAfter = make(map[ballotindex.CandidateID]int64, len(e.order))
	for _, c := range e.order {
		rec.TalliesAfter[c] = e.currentTally(c).String()
		rec.PapersAfter[c] = e.ledger.PaperCount(c)
	}
}

func (e *Engine) snapshotPrevRound() {
	for _, c := range e.order {
		e.prevTally[c] = e.currentTally(c)
	}
}

// checkWeightConservation enforces the first invariant of §3 and §8: total
// weight across every held parcel plus the exhausted pile must equal the
// total formal vote, exactly, at every round boundary.
func (e *Engine) checkWeightConservation() error {
	sum := e.exhausted
	for _, c := range e.order {
		sum = ratio.Add(sum, e.currentTally(c))
	}
	want := ratio.FromInt(e.totalFormal)
	if !sum.Equal(want) {
		return &InvariantViolation{
			Name:  "weight_conservation",
			Round: e.round,
			Got:   fmt.Sprintf("sum %s != total formal %s", sum.String(), want.String()),
		}
	}
	return nil
}

// resolveOrder sorts candidates into a strict order by key, breaking ties
// first by each candidate's tally at the end of the previous round and
// finally, if still tied, by the oracle — the cascade §4.5 describes in
// general and several of §4.4's individual actions name explicitly.
// minimize reverses both the primary and the tiebreak comparison, for
// exclusion-style actions that want the smallest value to come first.
func (e *Engine) resolveOrder(candidates []ballotindex.CandidateID, key func(ballotindex.CandidateID) ratio.Rational, ctx tiebreak.Context, minimize bool) ([]ballotindex.CandidateID, error) {
	remaining := append([]ballotindex.CandidateID(nil), candidates...)
	var out []ballotindex.CandidateID
	for len(remaining) > 0 {
		best := e.pickExtreme(remaining, key, minimize)
		if len(best) == 1 {
			out = append(out, best[0])
			remaining = removeOne(remaining, best[0])
			continue
		}
		prevBest := e.pickExtreme(best, func(c ballotindex.CandidateID) ratio.Rational { return e.prevTally[c] }, minimize)
		if len(prevBest) == 1 {
			out = append(out, prevBest[0])
			remaining = removeOne(remaining, prevBest[0])
			continue
		}
		winner, err := e.oracle.Resolve(e.round, ctx, prevBest)
		if err != nil {
			return nil, &TieUnresolved{Context: ctx, Round: e.round, Candidates: prevBest, Cause: err}
		}
		out = append(out, winner)
		remaining = removeOne(remaining, winner)
	}
	return out, nil
}

// pickExtreme returns every candidate achieving the extreme (maximum, or
// minimum when minimize is set) value of key over cands.
func (e *Engine) pickExtreme(cands []ballotindex.CandidateID, key func(ballotindex.CandidateID) ratio.Rational, minimize bool) []ballotindex.CandidateID {
	var best []ballotindex.CandidateID
	var bestVal ratio.Rational
	for i, c := range cands {
		v := key(c)
		switch {
		case i == 0:
			best, bestVal = []ballotindex.CandidateID{c}, v
		case v.Cmp(bestVal) == 0:
			best = append(best, c)
		case minimize && v.Cmp(bestVal) < 0, !minimize && v.Cmp(bestVal) > 0:
			best, bestVal = []ballotindex.CandidateID{c}, v
		}
	}
	return best
}

func removeOne(cands []ballotindex.CandidateID, target ballotindex.CandidateID) []ballotindex.CandidateID {
	out := make([]ballotindex.CandidateID, 0, len(cands)-1)
	removed := false
	for _, c := range cands {
		if !removed && c == target {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}

// sortAscendingIDs is used only to make iteration order (and therefore
// candidate-set strings handed to the oracle) stable across runs.
func sortAscendingIDs(cands []ballotindex.CandidateID) {
	sort.Slice(cands, func(i, j int) bool { return cands[i] < cands[j] })
}
