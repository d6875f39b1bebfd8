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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/cte"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/poolmgr"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/translate"
)

// Runner executes one compliance corpus against one live dialect (spec.md
// §4.6).
type Runner struct {
	Dialect    dialect.Dialect
	Pool       poolmgr.Pool
	Registry   *fhirtype.Registry
	Cache      *parser.Cache // optional; nil disables caching
	FixtureDir string
	Retry      poolmgr.RetryConfig
}

// RunCorpus loads corpusPath, executes every test case, and returns a
// finalized Report.
func (r *Runner) RunCorpus(ctx context.Context, corpusPath string) (*Report, error) {
	cases, err := LoadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}

	report := NewReport(string(r.Dialect.Kind()))
	for _, tc := range cases {
		res := r.runOne(ctx, tc)
		logrus.WithFields(logrus.Fields{
			"test":    tc.Name,
			"group":   tc.Group,
			"passed":  res.Passed,
			"elapsed": res.Elapsed,
		}).Debug("compliance: test complete")
		report.Add(res)
	}
	report.Finalize()
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, tc TestCase) TestResult {
	start := time.Now()
	result := TestResult{Group: tc.Group, Name: tc.Name}

	fixture, err := LoadContext(r.FixtureDir, tc.InputFile, r.Registry)
	if err != nil {
		return r.fail(result, start, err)
	}

	node, err := r.parseAndBuild(tc.Expression)
	if err != nil {
		return r.verdict(tc, result, start, nil, err, "")
	}

	tr := translate.New(r.Dialect, r.Registry)
	plan, err := tr.Translate(node)
	if err != nil {
		return r.verdict(tc, result, start, nil, err, "")
	}

	stmt, err := cte.Build(plan)
	if err != nil {
		return r.verdict(tc, result, start, nil, err, "")
	}
	result.SQL = stmt.SQL

	values, execErr := r.execute(ctx, stmt.SQL, fixture)
	return r.verdict(tc, result, start, values, execErr, stmt.SQL)
}

func (r *Runner) parseAndBuild(expr string) (ast.Node, error) {
	var raw *parser.RawNode
	var err error
	if r.Cache != nil {
		raw, err = r.Cache.Parse(parser.CacheKey{Expression: expr})
	} else {
		raw, err = parser.Parse(expr)
	}
	if err != nil {
		return nil, err
	}
	b := &ast.Builder{}
	return b.Build(raw)
}

// execute creates the ephemeral single-row resource table, runs sql, drops
// the table, and decodes the "result" column (spec.md §4.6 step 2). The
// lease's Release always runs, committing on success and rolling back on
// any failure along the way.
func (r *Runner) execute(ctx context.Context, sql string, fixture map[string]any) (result []any, err error) {
	lease, err := poolmgr.AcquireWithRetry(ctx, r.Pool, r.Retry)
	if err != nil {
		return nil, err
	}
	defer func() { lease.Release(err) }()

	resourceJSON, marshalErr := json.Marshal(fixture)
	if marshalErr != nil {
		return nil, fherrors.ErrExecution.New(marshalErr.Error())
	}

	if err = lease.Conn().Exec(ctx, createTableSQL(r.Dialect.Kind())); err != nil {
		return nil, err
	}
	defer func() {
		_ = lease.Conn().Exec(ctx, "DROP TABLE resource")
	}()

	insert := fmt.Sprintf("INSERT INTO resource (id, resource) VALUES (1, %s)",
		jsonLiteral(r.Dialect.Kind(), string(resourceJSON)))
	if err = lease.Conn().Exec(ctx, insert); err != nil {
		return nil, err
	}

	rows, qerr := lease.Conn().Query(ctx, sql)
	if qerr != nil {
		err = qerr
		return nil, err
	}
	if len(rows.Values) == 0 {
		return nil, nil
	}
	return decodeResultColumn(rows.Values[0][0]), nil
}

func createTableSQL(kind dialect.Kind) string {
	if kind == dialect.KindPostgres {
		return "CREATE TABLE resource (id INTEGER, resource JSONB)"
	}
	return "CREATE TABLE resource (id INTEGER, resource JSON)"
}

func jsonLiteral(kind dialect.Kind, jsonText string) string {
	escaped := strings.ReplaceAll(jsonText, "'", "''")
	if kind == dialect.KindPostgres {
		return fmt.Sprintf("'%s'::jsonb", escaped)
	}
	return fmt.Sprintf("'%s'", escaped)
}

// decodeResultColumn normalizes whatever the driver handed back for the
// "result" JSON-array column into a flat []any with nulls removed (FHIRPath
// collections cannot contain nulls, spec.md §4.6 step 2).
func decodeResultColumn(val any) []any {
	var raw []any
	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		raw = decodeJSONArray(string(v))
	case string:
		raw = decodeJSONArray(v)
	case []any:
		raw = v
	default:
		raw = []any{v}
	}
	out := make([]any, 0, len(raw))
	for _, v := range raw {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func decodeJSONArray(text string) []any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var arr []any
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr
	}
	var single any
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		if single == nil {
			return nil
		}
		return []any{single}
	}
	return []any{text}
}

func (r *Runner) verdict(tc TestCase, result TestResult, start time.Time, values []any, runErr error, sql string) TestResult {
	if sql != "" {
		result.SQL = sql
	}
	v, verr := Validate(tc, values, runErr)
	result.Verdict = v
	result.Passed = v == Pass
	result.Elapsed = time.Since(start)
	if !result.Passed {
		reportErr := runErr
		if reportErr == nil {
			reportErr = verr
		}
		result.Category = Categorize(reportErr)
		if reportErr != nil {
			result.Error = reportErr.Error()
		} else if verr != nil {
			result.Error = verr.Error()
		}
	}
	return result
}

func (r *Runner) fail(result TestResult, start time.Time, err error) TestResult {
	result.Passed = false
	result.Verdict = Fail
	result.Elapsed = time.Since(start)
	result.Category = Categorize(err)
	result.Error = err.Error()
	return result
}
