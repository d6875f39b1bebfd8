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

package poolmgr

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// DuckDBPool wraps a single DuckDB connection (spec.md §5: "a single
// connection for the analytical target" — DuckDB is typically embedded in
// one process, so there is no pool to exhaust, only one slot to contend
// for). Concurrent callers serialize on mu; this is the "pool" of size one.
type DuckDBPool struct {
	mu               sync.Mutex
	db               *sql.DB
	statementTimeout time.Duration
}

// OpenDuckDB opens (or creates) the DuckDB file at path (":memory:" for an
// ephemeral in-process database) and sets the one-connection limit the
// analytical target requires.
func OpenDuckDB(path string, statementTimeout time.Duration) (*DuckDBPool, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fherrors.ErrPoolBroken.New(err.Error())
	}
	db.SetMaxOpenConns(1)
	return &DuckDBPool{db: db, statementTimeout: statementTimeout}, nil
}

func (p *DuckDBPool) Acquire(ctx context.Context) (*Lease, error) {
	if !p.mu.TryLock() {
		// Block until free rather than failing fast — a single embedded
		// connection is meant to be time-shared, not treated as exhausted
		// the moment it's busy.
		p.mu.Lock()
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.mu.Unlock()
		return nil, fherrors.ErrPoolBroken.New(err.Error())
	}
	if p.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET statement_timeout='%dms'", p.statementTimeout.Milliseconds())
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			p.mu.Unlock()
			return nil, fherrors.ErrPoolBroken.New(err.Error())
		}
	}
	logAcquire(string(duckdbKind))

	released := false
	lease := &Lease{conn: &duckdbConn{conn: conn}}
	lease.release = func(err error) {
		if released {
			return
		}
		released = true
		logRelease(string(duckdbKind), err)
		conn.Close()
		p.mu.Unlock()
	}
	return lease, nil
}

func (p *DuckDBPool) Close() {
	p.db.Close()
}

const duckdbKind = "duckdb"

type duckdbConn struct {
	conn *sql.Conn
}

func (c *duckdbConn) Query(ctx context.Context, query string) (*Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fherrors.ErrExecution.New(err.Error())
	}
	out, err := sqlRows(rows)
	if err != nil {
		return nil, fherrors.ErrExecution.New(err.Error())
	}
	return out, nil
}

func (c *duckdbConn) Exec(ctx context.Context, query string) error {
	if _, err := c.conn.ExecContext(ctx, query); err != nil {
		return fherrors.ErrExecution.New(err.Error())
	}
	return nil
}
