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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// PostgresPool wraps a pgxpool.Pool: a real connection pool, unlike DuckDB's
// single connection (spec.md §5).
type PostgresPool struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// OpenPostgres creates a pool against dsn with the given max connection
// count.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, statementTimeout time.Duration) (*PostgresPool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fherrors.ErrPoolBroken.New(err.Error())
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fherrors.ErrPoolBroken.New(err.Error())
	}
	return &PostgresPool{pool: pool, statementTimeout: statementTimeout}, nil
}

func (p *PostgresPool) Acquire(ctx context.Context) (*Lease, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fherrors.ErrPoolTimeout.New()
		}
		return nil, fherrors.ErrPoolExhausted.New()
	}

	if p.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET statement_timeout = %d", p.statementTimeout.Milliseconds())
		if _, err := conn.Exec(ctx, stmt); err != nil {
			conn.Release()
			return nil, fherrors.ErrPoolBroken.New(err.Error())
		}
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, fherrors.ErrPoolBroken.New(err.Error())
	}
	logAcquire(string(postgresKind))

	released := false
	lease := &Lease{conn: &postgresConn{tx: tx, ctx: ctx}}
	lease.release = func(err error) {
		if released {
			return
		}
		released = true
		logRelease(string(postgresKind), err)
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
		conn.Release()
	}
	return lease, nil
}

func (p *PostgresPool) Close() {
	p.pool.Close()
}

const postgresKind = "postgres"

type postgresConn struct {
	tx  pgx.Tx
	ctx context.Context
}

func (c *postgresConn) Query(ctx context.Context, query string) (*Rows, error) {
	rows, err := c.tx.Query(ctx, query)
	if err != nil {
		return nil, fherrors.ErrExecution.New(err.Error())
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := &Rows{Columns: make([]string, len(fields))}
	for i, f := range fields {
		out.Columns[i] = string(f.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fherrors.ErrExecution.New(err.Error())
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fherrors.ErrExecution.New(err.Error())
	}
	return out, nil
}

func (c *postgresConn) Exec(ctx context.Context, query string) error {
	if _, err := c.tx.Exec(ctx, query); err != nil {
		return fherrors.ErrExecution.New(err.Error())
	}
	return nil
}
