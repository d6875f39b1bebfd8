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

// Package poolmgr models the connection lifecycle from spec.md §5: every
// database call acquires a connection (fallible, eligible for retry),
// executes, and releases on every exit path including panics. The Postgres
// lease runs in a transaction that it commits or rolls back on release; the
// DuckDB lease opens no transaction, so its statements run in autocommit mode
// and nothing is rolled back on error. DuckDB gets a single long-lived
// connection; Postgres gets a real pool. Both satisfy the same Pool/Lease contract so the rest of the system
// never branches on which target it's talking to.
package poolmgr

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
)

// Rows is the decoded result of a query: column names plus each row's
// already-typed values. Kept deliberately small — callers that need more
// than this (the compliance runner) decode JSON text results themselves.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Conn is what a Lease exposes: the ability to run one statement using the
// leased connection's session (and therefore its statement-timeout setting).
type Conn interface {
	Query(ctx context.Context, query string) (*Rows, error)
	Exec(ctx context.Context, query string) error
}

// Pool is the acquire/close contract shared by the single-connection
// (DuckDB) and pooled (Postgres) strategies.
type Pool interface {
	Acquire(ctx context.Context) (*Lease, error)
	Close()
}

// Lease is a scoped handle over one leased connection. Release must be
// called exactly once on every exit path; calling it more than once is a
// no-op so defer l.Release(err) is always safe even after an explicit call.
type Lease struct {
	conn     Conn
	release  func(err error)
	released bool
}

// Conn returns the connection this lease owns.
func (l *Lease) Conn() Conn { return l.conn }

// NewLease builds a Lease around an arbitrary Conn. Exported so a Pool
// implementation living outside this package (e.g. a test fake, or a future
// third dialect) can satisfy the same acquire/release contract without
// poolmgr needing to know about it.
func NewLease(conn Conn, release func(err error)) *Lease {
	return &Lease{conn: conn, release: release}
}

// Release ends the lease. A Postgres lease commits (err == nil) or rolls back
// (err != nil) its transaction and returns the connection to the pool; a
// DuckDB lease has no transaction and only closes its connection handle and
// frees the single slot. Safe to call from a
// deferred statement after a panic recovery as well as a normal return.
func (l *Lease) Release(err error) {
	if l.released {
		return
	}
	l.released = true
	l.release(err)
}

func logAcquire(kind string) {
	logrus.WithField("dialect", kind).Debug("poolmgr: connection acquired")
}

func logRelease(kind string, err error) {
	entry := logrus.WithField("dialect", kind)
	if err != nil {
		entry.WithError(err).Debug("poolmgr: connection released after error, rolled back")
		return
	}
	entry.Debug("poolmgr: connection released")
}

// sqlRows drains a *sql.Rows into the decoded Rows shape, closing it on
// every path.
func sqlRows(rs *sql.Rows) (*Rows, error) {
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols}
	for rs.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		out.Values = append(out.Values, raw)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
