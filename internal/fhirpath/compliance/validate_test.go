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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_IntegerMatch(t *testing.T) {
	tc := TestCase{Expected: []ExpectedOutput{{Type: "integer", Value: "2"}}}
	v, err := Validate(tc, []any{float64(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_DecimalToleratesFloatNoise(t *testing.T) {
	tc := TestCase{Expected: []ExpectedOutput{{Type: "decimal", Value: "5.5"}}}
	v, err := Validate(tc, []any{5.5000000001}, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_BooleanMismatch(t *testing.T) {
	tc := TestCase{Expected: []ExpectedOutput{{Type: "boolean", Value: "true"}}}
	v, err := Validate(tc, []any{false}, nil)
	assert.Equal(t, Fail, v)
	assert.Error(t, err)
}

func TestValidate_DateStripsLeadingAt(t *testing.T) {
	tc := TestCase{Expected: []ExpectedOutput{{Type: "date", Value: "@2020-01-01"}}}
	v, err := Validate(tc, []any{"2020-01-01"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_EmptyExpectedPassesOnEmptyActual(t *testing.T) {
	tc := TestCase{}
	v, err := Validate(tc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_EmptyExpectedFailsOnNonEmptyActual(t *testing.T) {
	tc := TestCase{}
	v, _ := Validate(tc, []any{"x"}, nil)
	assert.Equal(t, Fail, v)
}

func TestValidate_PredicateTruthiness(t *testing.T) {
	tc := TestCase{Predicate: true, Expected: []ExpectedOutput{{Value: "true"}}}
	v, err := Validate(tc, []any{"non-empty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_InvalidSyntax_PassesOnError(t *testing.T) {
	tc := TestCase{Invalid: InvalidSyntax}
	v, err := Validate(tc, nil, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, Pass, v)
}

func TestValidate_InvalidSyntax_FailsWithoutError(t *testing.T) {
	tc := TestCase{Invalid: InvalidSyntax}
	v, err := Validate(tc, nil, nil)
	assert.Equal(t, Fail, v)
	assert.Error(t, err)
}

func TestValidate_RunErrorPropagatesAsFailure(t *testing.T) {
	tc := TestCase{Expected: []ExpectedOutput{{Type: "integer", Value: "2"}}}
	runErr := errors.New("execution failed")
	v, err := Validate(tc, nil, runErr)
	assert.Equal(t, Fail, v)
	assert.Equal(t, runErr, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy([]any{""}))
	assert.True(t, Truthy([]any{"x"}))
	assert.False(t, Truthy([]any{float64(0)}))
	assert.True(t, Truthy([]any{float64(1)}))
	assert.False(t, Truthy([]any{false}))
	assert.True(t, Truthy([]any{true}))
	assert.True(t, Truthy([]any{map[string]any{}}))
	assert.True(t, Truthy([]any{"a", "b"}))
}
