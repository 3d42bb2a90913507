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

// Package main provides the entry point for senatecount, a Section 273
// Senate count runner.
//
// It reads a candidate list and a ballot file from disk, runs the count to
// completion (or to the first fatal error), and writes a round-by-round
// transcript plus a final summary to an output directory. If a redis
// address is given, the engine's state is checkpointed after every round.
// This command always starts a count from round 1: it writes checkpoints but
// never reads one back (persistence.RedisCheckpointer.Load and count.Restore
// are the library calls that resume from one).
package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"senatecount/internal/ballotindex"
	"senatecount/internal/count"
	"senatecount/internal/ingest"
	"senatecount/internal/persistence"
	"senatecount/internal/telemetry"
	"senatecount/internal/tiebreak"
)

func main() {
	candidatesPath := flag.String("candidates", "", "CSV file of candidates (id,name,party)")
	ballotsPath := flag.String("ballots", "", "CSV file of ballots (weight,pref1,pref2,...)")
	vacancies := flag.Int("vacancies", 0, "Number of seats to fill")
	scheme := flag.String("scheme", "optional", "Formality scheme: optional or gvt")
	automationPath := flag.String("automation", "", "Optional JSON file of pre-recorded tie-break answers")
	outDir := flag.String("out", "out", "Directory to write rounds.jsonl and summary.json into")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	redisAddr := flag.String("redis_addr", "", "If non-empty, checkpoint engine state to this Redis address after every round")
	redisKey := flag.String("redis_key", "senatecount:checkpoint", "Redis key to checkpoint under")
	parallel := flag.String("parallel", "", "Comma-separated list of automation files; if set, runs one independent count per file concurrently instead of the single -automation run, each under its own subdirectory of -out")
	flag.Parse()

	if *candidatesPath == "" || *ballotsPath == "" || *vacancies <= 0 {
		fmt.Fprintln(os.Stderr, "usage: senatecount -candidates FILE -ballots FILE -vacancies N [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	base := runArgs{
		candidatesPath: *candidatesPath,
		ballotsPath:    *ballotsPath,
		vacancies:      *vacancies,
		schemeName:     *scheme,
		automationPath: *automationPath,
		outDir:         *outDir,
		metricsAddr:    *metricsAddr,
		redisAddr:      *redisAddr,
		redisKey:       *redisKey,
	}

	if *parallel == "" {
		os.Exit(run(base))
	}
	os.Exit(runParallel(base, strings.Split(*parallel, ",")))
}

// runParallel runs one independent count.Engine per automation file in
// automationFiles, concurrently, each under its own subdirectory of
// base.outDir named after that file's base name. This is the only place
// concurrency crosses an Engine boundary: each goroutine owns one Engine
// exclusively, per the single-threaded-per-Engine model internal/count
// documents. The process exit code is the worst (highest) of the
// per-scenario exit codes.
func runParallel(base runArgs, automationFiles []string) int {
	type result struct {
		scenario string
		code     int
	}
	results := make(chan result, len(automationFiles))
	for _, f := range automationFiles {
		f := f
		go func() {
			scenario := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			a := base
			a.automationPath = f
			a.outDir = filepath.Join(base.outDir, scenario)
			// Each scenario gets its own Redis key so concurrent runs don't
			// clobber one another's checkpoint; a single -metrics_addr can't
			// serve more than one registry, so per-scenario metrics serving
			// is skipped in this mode.
			if a.redisAddr != "" {
				a.redisKey = base.redisKey + ":" + scenario
			}
			a.metricsAddr = ""
			code := run(a)
			results <- result{scenario: scenario, code: code}
		}()
	}
	worst := 0
	for range automationFiles {
		r := <-results
		log.Printf("senatecount: scenario %q finished with exit code %d", r.scenario, r.code)
		if r.code > worst {
			worst = r.code
		}
	}
	return worst
}

type runArgs struct {
	candidatesPath string
	ballotsPath    string
	vacancies      int
	schemeName     string
	automationPath string
	outDir         string
	metricsAddr    string
	redisAddr      string
	redisKey       string
}

// run executes one count end to end and returns the process exit code:
// 0 on a completed count, 1 if the input itself was rejected, 2 for any
// other fatal error (an invariant violation, an unresolved tie, or a
// degenerate count), with the accumulated transcript flushed regardless.
func run(a runArgs) int {
	scheme, err := parseScheme(a.schemeName)
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 1
	}

	candidateList, err := loadCandidates(a.candidatesPath)
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 1
	}

	idx, informal, err := loadBallots(a.ballotsPath, candidateList, scheme)
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 1
	}

	oracle, err := loadOracle(a.automationPath)
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	recorder := telemetry.NewRecorder(reg)
	if a.metricsAddr != "" {
		startMetricsEndpoint(a.metricsAddr, reg)
	}

	var checkpointer *persistence.RedisCheckpointer
	if a.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.redisAddr})
		checkpointer = persistence.NewRedisCheckpointer(client, a.redisKey, 0)
	}

	engine, err := count.New(candidateList, a.vacancies, idx, oracle, count.Config{})
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 1
	}

	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		log.Printf("senatecount: creating output directory: %v", err)
		return 2
	}
	roundsFile, err := os.Create(filepath.Join(a.outDir, "rounds.jsonl"))
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 2
	}
	defer roundsFile.Close()
	transcript := persistence.NewTranscriptWriter(roundsFile)

	runErr := drive(engine, transcript, recorder, checkpointer)

	summary := persistence.Summary{
		Elected:       electedEntries(engine),
		TotalRounds:   engine.Round(),
		Quota:         engine.Quota(),
		InformalCount: informal,
	}
	summaryFile, err := os.Create(filepath.Join(a.outDir, "summary.json"))
	if err != nil {
		log.Printf("senatecount: %v", err)
		return 2
	}
	defer summaryFile.Close()
	if err := persistence.WriteSummary(summaryFile, summary); err != nil {
		log.Printf("senatecount: writing summary: %v", err)
		return 2
	}

	if runErr != nil {
		log.Printf("senatecount: count did not complete: %v", runErr)
		if _, ok := runErr.(*count.InputRejected); ok {
			return 1
		}
		return 2
	}

	fmt.Printf("count complete after %d rounds, quota %d, elected: %v\n", engine.Round(), engine.Quota(), engine.Elected())
	return 0
}

// drive steps engine to completion, recording telemetry, appending a
// transcript entry, and checkpointing to Redis, after every round.
func drive(engine *count.Engine, transcript *persistence.TranscriptWriter, recorder *telemetry.Recorder, checkpointer *persistence.RedisCheckpointer) error {
	ctx := context.Background()
	for engine.Phase() != count.Completed {
		started := time.Now()
		rec, err := engine.Step()
		if err != nil {
			return err
		}
		recorder.RoundCompleted(time.Since(started))
		for range rec.Elected {
			recorder.CandidateElected()
		}
		for range rec.Excluded {
			recorder.CandidateExcluded()
		}
		if err := transcript.WriteRound(rec); err != nil {
			return fmt.Errorf("writing round %d: %w", rec.Number, err)
		}
		if checkpointer != nil {
			snap := engine.Snapshot()
			if err := checkpointer.Save(ctx, snap); err != nil {
				return fmt.Errorf("checkpointing round %d: %w", rec.Number, err)
			}
		}
	}
	recorder.CountCompleted(engine.Round())
	return nil
}

func parseScheme(name string) (ingest.Scheme, error) {
	switch name {
	case "optional", "":
		return ingest.SchemeOptionalPreferential, nil
	case "gvt":
		return ingest.SchemeGroupVotingTicket, nil
	default:
		return 0, fmt.Errorf("unknown -scheme %q, want optional or gvt", name)
	}
}

// openMaybeGzip opens path for reading, transparently decompressing it if
// its name ends in ".gz" — the AEC itself distributes its senate data as
// compressed CSV, and a count this size benefits from not having to
// pre-decompress a multi-gigabyte ballot file by hand.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return struct {
		io.Reader
		io.Closer
	}{gz, f}, nil
}

func loadCandidates(path string) ([]count.Candidate, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("opening candidates file: %w", err)
	}
	defer f.Close()
	return ingest.LoadCandidates(f)
}

func loadBallots(path string, candidateList []count.Candidate, scheme ingest.Scheme) (*ballotindex.Index, int64, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening ballots file: %w", err)
	}
	defer f.Close()
	raw, err := ingest.LoadBallots(f)
	if err != nil {
		return nil, 0, err
	}
	return ingest.BuildIndex(candidateList, raw, scheme)
}

func loadOracle(path string) (tiebreak.Oracle, error) {
	if path == "" {
		return tiebreak.LowestIDOracle{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening automation file: %w", err)
	}
	defer f.Close()
	return ingest.LoadAutomation(f)
}

func electedEntries(engine *count.Engine) []count.ElectedEntry {
	elected := engine.Elected()
	entries := make([]count.ElectedEntry, 0, len(elected))
	for order, id := range elected {
		entries = append(entries, count.ElectedEntry{CandidateID: id, Order: order + 1})
	}
	return entries
}

func startMetricsEndpoint(addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
