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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_FinalizeComputesCompliancePct(t *testing.T) {
	r := NewReport("duckdb")
	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err, "RunID must be a valid uuid")

	r.Add(TestResult{Name: "a", Passed: true, Elapsed: 10 * time.Millisecond})
	r.Add(TestResult{Name: "b", Passed: false, Category: CategoryResultLogic, Elapsed: 20 * time.Millisecond})
	r.Add(TestResult{Name: "c", Passed: true, Elapsed: 5 * time.Millisecond})
	r.Finalize()

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.InDelta(t, 66.67, r.CompliancePct, 0.01)
	assert.Equal(t, 1, r.ByCategory[CategoryResultLogic])
}

func TestReport_TopFailuresCapsAtTen(t *testing.T) {
	r := NewReport("postgres")
	for i := 0; i < 15; i++ {
		r.Add(TestResult{Name: "f", Passed: false, Category: CategoryUncategorized})
	}
	r.Finalize()
	assert.Len(t, r.TopFailures, 10)
}

func TestReport_MarshalJSON_RoundTrips(t *testing.T) {
	r := NewReport("duckdb")
	r.Add(TestResult{Name: "a", Passed: true})
	r.Finalize()

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "duckdb", decoded["dialect"])
	assert.Equal(t, float64(1), decoded["total"])
}

func TestPercentileOf(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 5.0, percentileOf(sorted, 0.5))
	assert.Equal(t, 9.0, percentileOf(sorted, 0.99))
	assert.Equal(t, 1.0, percentileOf(sorted, 0))
}
