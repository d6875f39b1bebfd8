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

// Package config loads the ambient configuration shared by the CLI and the
// compliance runner: dialect selection, pool sizing, statement timeouts,
// parser cache sizing and retry backoff parameters.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration document.
type Config struct {
	Dialect    string           `yaml:"dialect"`    // "duckdb" or "postgres"
	DuckDB     DuckDBConfig     `yaml:"duckdb"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ParserCache ParserCacheConfig `yaml:"parser_cache"`
	Retry      RetryConfig      `yaml:"retry"`
	Compliance ComplianceConfig `yaml:"compliance"`
}

type DuckDBConfig struct {
	Path string `yaml:"path"` // ":memory:" for ephemeral
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

type ParserCacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type RetryConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts uint64        `yaml:"max_attempts"`
}

type ComplianceConfig struct {
	CorpusPath string `yaml:"corpus_path"`
	ReportPath string `yaml:"report_path"`
}

// Default returns a Config with sane values for local development against an
// in-memory DuckDB instance.
func Default() Config {
	return Config{
		Dialect: "duckdb",
		DuckDB:  DuckDBConfig{Path: ":memory:"},
		Postgres: PostgresConfig{
			MaxConns:         10,
			StatementTimeout: 30 * time.Second,
		},
		ParserCache: ParserCacheConfig{Size: 512, TTL: 10 * time.Minute},
		Retry: RetryConfig{
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			MaxAttempts: 5,
		},
		Compliance: ComplianceConfig{
			CorpusPath: "testdata/compliance/fhirpath_tests.xml",
			ReportPath: "compliance_report.json",
		},
	}
}

// Load reads a YAML config file, falling back to Default for any field the
// document doesn't set, and finally applies FHIRSQL_-prefixed environment
// overrides for the values most commonly changed per-environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if dsn := os.Getenv("FHIRSQL_POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if dialect := os.Getenv("FHIRSQL_DIALECT"); dialect != "" {
		cfg.Dialect = dialect
	}
	return cfg, nil
}
