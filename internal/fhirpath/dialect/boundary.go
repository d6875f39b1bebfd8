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

package dialect

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DecimalBoundaryConstant computes the ± 0.5 × 10^(-inputPrecision) constant
// used by precision-aware decimal boundary emission (spec.md §4.3.2), using
// shopspring/decimal so the constant itself never accumulates float rounding
// error before it reaches the generated SQL literal.
func DecimalBoundaryConstant(inputPrecision int) decimal.Decimal {
	half := decimal.NewFromFloat(0.5)
	scale := decimal.New(1, int32(-inputPrecision))
	return half.Mul(scale)
}

// ResolvedTargetPrecision applies the default (input+5, capped at 31) rule.
func ResolvedTargetPrecision(inputPrecision int, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	p := inputPrecision + 5
	if p > 31 {
		p = 31
	}
	return p
}

// FormatBoundaryConstant renders a decimal.Decimal as a SQL numeric literal
// with a sign, e.g. "+0.005" or "-0.00001", for splicing into a dialect's
// DecimalBoundary implementation.
func FormatBoundaryConstant(c decimal.Decimal, selector BoundarySelector) string {
	if selector == BoundaryHigh {
		return "+" + c.String()
	}
	return "-" + c.String()
}

// RoundSQL wraps expr in a ROUND(expr, precision) call — identical syntax on
// both target dialects, so it lives here rather than being duplicated in
// duckdb.go/postgres.go.
func RoundSQL(expr string, precision int) string {
	return fmt.Sprintf("ROUND(%s, %d)", expr, precision)
}
