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

// Package telemetry exposes the count's progress as Prometheus metrics.
// Unlike the teacher's churn package, which tracks one always-on global
// singleton, a Recorder here is instantiated per count.Engine: the CLI's
// -parallel flag can run several engines at once (see §5 of the design
// notes), each wanting its own counters registered against its own
// registry rather than colliding on shared global state.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder wraps the Prometheus metrics one Section 273 count emits.
type Recorder struct {
	roundDuration      prometheus.Histogram
	candidatesElected  prometheus.Counter
	candidatesExcluded prometheus.Counter
	countsCompleted    prometheus.Counter
	roundsPerCount     prometheus.Histogram
}

// NewRecorder builds a Recorder and registers its metrics against reg.
// Passing a fresh prometheus.NewRegistry() per Engine keeps concurrent
// counts' metrics from colliding on duplicate registration; passing
// prometheus.DefaultRegisterer is fine for a single count per process.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "senatecount_round_duration_seconds",
			Help:    "Wall-clock time to compute one count round.",
			Buckets: prometheus.DefBuckets,
		}),
		candidatesElected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "senatecount_candidates_elected_total",
			Help: "Total candidates declared elected.",
		}),
		candidatesExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "senatecount_candidates_excluded_total",
			Help: "Total candidates declared excluded.",
		}),
		countsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "senatecount_counts_completed_total",
			Help: "Total counts that reached the Completed phase.",
		}),
		roundsPerCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "senatecount_rounds_per_count",
			Help:    "Distribution of the number of rounds a completed count took.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),
	}
	reg.MustRegister(r.roundDuration, r.candidatesElected, r.candidatesExcluded, r.countsCompleted, r.roundsPerCount)
	return r
}

// RoundCompleted records how long one Engine.Step call took.
func (r *Recorder) RoundCompleted(d time.Duration) {
	r.roundDuration.Observe(d.Seconds())
}

// CandidateElected increments the elected-candidates counter by one.
func (r *Recorder) CandidateElected() {
	r.candidatesElected.Inc()
}

// CandidateExcluded increments the excluded-candidates counter by one.
func (r *Recorder) CandidateExcluded() {
	r.candidatesExcluded.Inc()
}

// CountCompleted records that a count finished after totalRounds rounds.
func (r *Recorder) CountCompleted(totalRounds int) {
	r.countsCompleted.Inc()
	r.roundsPerCount.Observe(float64(totalRounds))
}
