// Copyright 2024 Joel Montavon.
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

package compliance

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TestResult is the outcome of running and validating a single TestCase.
type TestResult struct {
	Group    string        `json:"group"`
	Name     string        `json:"name"`
	Verdict  Verdict       `json:"-"`
	Passed   bool          `json:"passed"`
	Category Category      `json:"category,omitempty"`
	Error    string        `json:"error,omitempty"`
	SQL      string        `json:"sql,omitempty"`
	Elapsed  time.Duration `json:"-"`
	ElapsedMS float64      `json:"elapsed_ms"`
}

// Report is the JSON document the compliance runner emits (spec.md §4.6
// "Output").
type Report struct {
	RunID      string             `json:"run_id"`
	GeneratedAt string            `json:"generated_at,omitempty"`
	Dialect    string             `json:"dialect"`
	Total      int                `json:"total"`
	Passed     int                `json:"passed"`
	Failed     int                `json:"failed"`
	CompliancePct float64         `json:"compliance_pct"`
	ByCategory map[Category]int   `json:"by_category"`
	Percentiles Percentiles       `json:"performance_percentiles"`
	TopFailures []TestResult      `json:"top_failures,omitempty"`

	results []TestResult
}

// Percentiles holds the p50/p90/p99 per-test wall-clock latencies, in
// milliseconds.
type Percentiles struct {
	P50 float64 `json:"p50_ms"`
	P90 float64 `json:"p90_ms"`
	P99 float64 `json:"p99_ms"`
}

// NewReport starts an empty report for the named dialect, stamped with a
// fresh run id (google/uuid, per SPEC_FULL.md §4.6) so repeated runs over
// the same corpus are distinguishable.
func NewReport(dialectName string) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Dialect:    dialectName,
		ByCategory: map[Category]int{},
	}
}

// Add records one test's outcome.
func (r *Report) Add(res TestResult) {
	res.ElapsedMS = float64(res.Elapsed.Microseconds()) / 1000.0
	r.results = append(r.results, res)
	r.Total++
	if res.Passed {
		r.Passed++
	} else {
		r.Failed++
		r.ByCategory[res.Category]++
	}
}

// Finalize computes the derived fields (compliance percentage, latency
// percentiles, top-10 failure examples) after every test has been Added.
func (r *Report) Finalize() {
	if r.Total > 0 {
		r.CompliancePct = 100 * float64(r.Passed) / float64(r.Total)
	}
	r.Percentiles = computePercentiles(r.results)
	r.TopFailures = topFailures(r.results, 10)
}

func computePercentiles(results []TestResult) Percentiles {
	if len(results) == 0 {
		return Percentiles{}
	}
	sorted := make([]float64, len(results))
	for i, r := range results {
		sorted[i] = r.ElapsedMS
	}
	sort.Float64s(sorted)
	return Percentiles{
		P50: percentileOf(sorted, 0.50),
		P90: percentileOf(sorted, 0.90),
		P99: percentileOf(sorted, 0.99),
	}
}

// percentileOf returns the element at index floor(p*(len-1)) of an
// already-sorted slice, without interpolation.
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topFailures(results []TestResult, n int) []TestResult {
	var failures []TestResult
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, r)
		}
	}
	if len(failures) > n {
		failures = failures[:n]
	}
	return failures
}

// MarshalJSON renders the final report. Finalize must be called first;
// MarshalJSON does not mutate the report.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report // avoid infinite recursion through MarshalJSON
	return json.MarshalIndent((*alias)(r), "", "  ")
}
