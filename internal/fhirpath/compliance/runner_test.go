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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/poolmgr"
)

// fakeConn is an in-memory stand-in for poolmgr.Conn: it remembers the last
// inserted "resource" row's JSON text and answers every SELECT with a
// canned result column computed by resolve, keyed off that JSON. This lets
// the test drive Runner.execute's full create/insert/query/drop sequence
// without a real database.
type fakeConn struct {
	resolve func(insertedJSON string) any
	last    string
}

func (c *fakeConn) Exec(ctx context.Context, query string) error {
	if strings.Contains(query, "INSERT INTO resource") {
		start := strings.Index(query, "'")
		end := strings.LastIndex(query, "'")
		if start >= 0 && end > start {
			c.last = strings.ReplaceAll(query[start+1:end], "''", "'")
		}
	}
	return nil
}

func (c *fakeConn) Query(ctx context.Context, query string) (*poolmgr.Rows, error) {
	encoded, err := json.Marshal(c.resolve(c.last))
	if err != nil {
		return nil, err
	}
	return &poolmgr.Rows{Columns: []string{"result"}, Values: [][]any{{string(encoded)}}}, nil
}

// scriptedPool always hands out a fresh Lease over the same fakeConn,
// exercising poolmgr's real Acquire/Release contract via its exported
// NewLease constructor.
type scriptedPool struct {
	conn *fakeConn
}

func (p *scriptedPool) Acquire(ctx context.Context) (*poolmgr.Lease, error) {
	return poolmgr.NewLease(p.conn, func(error) {}), nil
}

func (p *scriptedPool) Close() {}

func TestRunner_RunCorpus_PassAndFail(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.xml")
	require.NoError(t, os.WriteFile(corpusPath, []byte(`<?xml version="1.0"?>
<tests>
  <group name="g">
    <test name="ok"><expression>1 + 1</expression><output type="integer">2</output></test>
    <test name="wrong"><expression>1 + 1</expression><output type="integer">3</output></test>
  </group>
</tests>`), 0o644))

	pool := &scriptedPool{conn: &fakeConn{resolve: func(string) any { return []any{float64(2)} }}}

	runner := &Runner{
		Dialect:    dialect.NewDuckDB(),
		Pool:       pool,
		Registry:   fhirtype.Default(),
		FixtureDir: dir,
	}

	report, err := runner.RunCorpus(context.Background(), corpusPath)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ByCategory[CategoryResultLogic])
	require.Len(t, report.TopFailures, 1)
	assert.Equal(t, "wrong", report.TopFailures[0].Name)
}

func TestRunner_InvalidSyntaxTest_PassesWhenParseFails(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.xml")
	require.NoError(t, os.WriteFile(corpusPath, []byte(`<?xml version="1.0"?>
<tests>
  <group name="g">
    <test name="bad"><expression invalid="syntax"></expression></test>
  </group>
</tests>`), 0o644))

	pool := &scriptedPool{conn: &fakeConn{resolve: func(string) any { return []any{} }}}
	runner := &Runner{
		Dialect:    dialect.NewDuckDB(),
		Pool:       pool,
		Registry:   fhirtype.Default(),
		FixtureDir: dir,
	}

	report, err := runner.RunCorpus(context.Background(), corpusPath)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 0, report.Failed)
}
