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

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"senatecount/internal/persistence"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestRunCompletesASmallCount(t *testing.T) {
	dir := t.TempDir()
	candidates := writeFile(t, dir, "candidates.csv", "id,name,party\n1,Alice,A\n2,Bob,B\n3,Carol,C\n")
	ballots := writeFile(t, dir, "ballots.csv", "weight,pref1,pref2,pref3\n"+
		"40,1,2,3\n"+
		"30,2,1,3\n"+
		"20,3,1,2\n")
	out := filepath.Join(dir, "out")

	code := run(runArgs{
		candidatesPath: candidates,
		ballotsPath:    ballots,
		vacancies:      1,
		schemeName:     "optional",
		outDir:         out,
	})
	if code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	summaryBytes, err := os.ReadFile(filepath.Join(out, "summary.json"))
	if err != nil {
		t.Fatalf("reading summary.json: %v", err)
	}
	var summary persistence.Summary
	if err := json.Unmarshal(summaryBytes, &summary); err != nil {
		t.Fatalf("decoding summary.json: %v", err)
	}
	if len(summary.Elected) != 1 {
		t.Fatalf("summary.Elected = %+v, want exactly one seat filled", summary.Elected)
	}
	if summary.Elected[0].CandidateID != 1 {
		t.Fatalf("expected Alice (id 1) elected after Carol's exclusion, got %+v", summary.Elected[0])
	}

	rounds, err := os.ReadFile(filepath.Join(out, "rounds.jsonl"))
	if err != nil {
		t.Fatalf("reading rounds.jsonl: %v", err)
	}
	if len(rounds) == 0 {
		t.Fatalf("expected a non-empty transcript")
	}
}

func TestRunRejectsMissingCandidatesFile(t *testing.T) {
	dir := t.TempDir()
	ballots := writeFile(t, dir, "ballots.csv", "weight,pref1\n1,1\n")

	code := run(runArgs{
		candidatesPath: filepath.Join(dir, "does-not-exist.csv"),
		ballotsPath:    ballots,
		vacancies:      1,
		outDir:         filepath.Join(dir, "out"),
	})
	if code != 1 {
		t.Fatalf("run() = %d, want 1 for a missing input file", code)
	}
}

func TestRunRejectsUnknownScheme(t *testing.T) {
	dir := t.TempDir()
	candidates := writeFile(t, dir, "candidates.csv", "id,name,party\n1,Alice,A\n2,Bob,B\n")
	ballots := writeFile(t, dir, "ballots.csv", "weight,pref1\n1,1\n")

	code := run(runArgs{
		candidatesPath: candidates,
		ballotsPath:    ballots,
		vacancies:      1,
		schemeName:     "not-a-real-scheme",
		outDir:         filepath.Join(dir, "out"),
	})
	if code != 1 {
		t.Fatalf("run() = %d, want 1 for an unknown scheme", code)
	}
}
