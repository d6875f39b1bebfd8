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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// Verdict is the outcome of validating one test's actual result against its
// expected outputs.
type Verdict int

const (
	Pass Verdict = iota
	Fail
)

// floatTolerance is the cross-dialect numeric comparison tolerance named in
// spec.md §8 item 4.
const floatTolerance = 1e-9

// Validate implements spec.md §4.6 step 3: the four-way dispatch over
// invalid/predicate/empty/element-wise comparison.
func Validate(tc TestCase, actual []any, runErr error) (Verdict, error) {
	switch tc.Invalid {
	case InvalidSyntax, InvalidSemantic:
		if runErr == nil {
			return Fail, fherrors.ErrMissingExpectedFailure.New(string(tc.Invalid))
		}
		return Pass, nil
	case InvalidExec:
		if runErr == nil {
			return Fail, fherrors.ErrMissingExpectedFailure.New(string(tc.Invalid))
		}
		return Pass, nil
	}

	if runErr != nil {
		return Fail, runErr
	}

	if tc.Predicate {
		return validatePredicate(tc, actual)
	}

	if len(tc.Expected) == 0 {
		if len(actual) == 0 {
			return Pass, nil
		}
		return Fail, fherrors.ErrValueMismatch.New("empty", actual)
	}

	if len(actual) != len(tc.Expected) {
		return Fail, fherrors.ErrResultShapeMismatch.New(
			strconv.Itoa(len(tc.Expected))+" value(s)",
			strconv.Itoa(len(actual))+" value(s)")
	}

	for i, exp := range tc.Expected {
		if !elementsEqual(exp, actual[i]) {
			return Fail, fherrors.ErrValueMismatch.New(exp.Value, actual[i])
		}
	}
	return Pass, nil
}

// validatePredicate coerces actual to FHIRPath truthiness (spec.md §4.4 item
// 4) and compares to the expected boolean in tc.Expected[0].
func validatePredicate(tc TestCase, actual []any) (Verdict, error) {
	expected := len(tc.Expected) > 0 && strings.EqualFold(tc.Expected[0].Value, "true")
	got := Truthy(actual)
	if got == expected {
		return Pass, nil
	}
	return Fail, fherrors.ErrResultShapeMismatch.New(strconv.FormatBool(expected), strconv.FormatBool(got))
}

// Truthy implements the FHIRPath truthiness rule spec.md §4.4 item 4 so it
// is shared between the compliance validator and anything in translate that
// needs the same host-side rule (e.g. test helpers).
func Truthy(vals []any) bool {
	if len(vals) == 0 {
		return false
	}
	if len(vals) > 1 {
		return true
	}
	switch v := vals[0].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true // arrays/objects
	}
}

// elementsEqual implements the type-aware equality relation from spec.md §8
// item 4 and §4.6 step 3: bool by canonical form, numeric by float equality
// within tolerance, dates compared with any leading '@' stripped, everything
// else by string form.
func elementsEqual(exp ExpectedOutput, actual any) bool {
	switch strings.ToLower(exp.Type) {
	case "boolean":
		expB, err := strconv.ParseBool(exp.Value)
		if err != nil {
			return false
		}
		actB, ok := asBool(actual)
		return ok && expB == actB
	case "integer", "decimal", "long":
		expF, err := strconv.ParseFloat(exp.Value, 64)
		if err != nil {
			return false
		}
		actF, ok := asFloat(actual)
		return ok && math.Abs(expF-actF) < floatTolerance
	case "date", "datetime", "time":
		return stripAt(exp.Value) == stripAt(asString(actual))
	default:
		return exp.Value == asString(actual)
	}
}

func stripAt(s string) string { return strings.TrimPrefix(s, "@") }

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
