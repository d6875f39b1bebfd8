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

// fhirsql is the CLI entrypoint: "translate" compiles one FHIRPath
// expression to SQL for a chosen dialect; "compliance" runs the external
// XML test corpus and prints a JSON report (spec.md §4.6). Flag-based, not
// Cobra-based — the teacher's own example binaries (_example/main.go,
// driver/_example/main.go) are flag/literal-driven, so we keep the same
// flat dependency surface here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/compliance"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/config"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/cte"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/poolmgr"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/translate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "translate":
		runTranslate(os.Args[2:])
	case "compliance":
		runCompliance(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fhirsql <translate|compliance> [flags]")
}

func runTranslate(args []string) {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	expr := fs.String("expr", "", "FHIRPath expression to translate")
	dialectName := fs.String("dialect", "duckdb", "target dialect: duckdb or postgres")
	fs.Parse(args)

	if *expr == "" {
		fmt.Fprintln(os.Stderr, "translate: -expr is required")
		os.Exit(2)
	}

	d, err := resolveDialect(*dialectName)
	if err != nil {
		fail(err)
	}

	raw, err := parser.Parse(*expr)
	if err != nil {
		fail(err)
	}
	b := &ast.Builder{}
	node, err := b.Build(raw)
	if err != nil {
		fail(err)
	}

	tr := translate.New(d, fhirtype.Default())
	plan, err := tr.Translate(node)
	if err != nil {
		fail(err)
	}
	stmt, err := cte.Build(plan)
	if err != nil {
		fail(err)
	}
	fmt.Println(stmt.SQL)
}

func runCompliance(args []string) {
	fs := flag.NewFlagSet("compliance", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file (optional)")
	corpusPath := fs.String("corpus", "", "override config's compliance.corpus_path")
	fixtureDir := fs.String("fixtures", "testdata/compliance", "directory holding XML fixtures")
	reportPath := fs.String("report", "", "override config's compliance.report_path")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *corpusPath != "" {
		cfg.Compliance.CorpusPath = *corpusPath
	}
	if *reportPath != "" {
		cfg.Compliance.ReportPath = *reportPath
	}

	d, err := resolveDialect(cfg.Dialect)
	if err != nil {
		fail(err)
	}

	pool, err := openPool(cfg, d.Kind())
	if err != nil {
		fail(err)
	}
	defer pool.Close()

	runner := &compliance.Runner{
		Dialect:    d,
		Pool:       pool,
		Registry:   fhirtype.Default(),
		FixtureDir: *fixtureDir,
		Retry: poolmgr.RetryConfig{
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
	}

	logrus.WithField("corpus", cfg.Compliance.CorpusPath).Info("compliance: starting run")
	report, err := runner.RunCorpus(context.Background(), cfg.Compliance.CorpusPath)
	if err != nil {
		fail(err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fail(err)
	}
	if err := os.WriteFile(cfg.Compliance.ReportPath, out, 0o644); err != nil {
		fail(err)
	}
	fmt.Printf("compliance: %d/%d passed (%.1f%%), report written to %s\n",
		report.Passed, report.Total, report.CompliancePct, cfg.Compliance.ReportPath)
}

func resolveDialect(name string) (dialect.Dialect, error) {
	switch name {
	case string(dialect.KindDuckDB), "":
		return dialect.NewDuckDB(), nil
	case string(dialect.KindPostgres):
		return dialect.NewPostgres(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

func openPool(cfg config.Config, kind dialect.Kind) (poolmgr.Pool, error) {
	if kind == dialect.KindPostgres {
		return poolmgr.OpenPostgres(context.Background(), cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.StatementTimeout)
	}
	return poolmgr.OpenDuckDB(cfg.DuckDB.Path, 0)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "fhirsql:", err)
	os.Exit(1)
}
