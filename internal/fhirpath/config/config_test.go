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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsUsableForLocalDuckDB(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "duckdb", cfg.Dialect)
	assert.Equal(t, ":memory:", cfg.DuckDB.Path)
	assert.Greater(t, cfg.ParserCache.Size, 0)
	assert.Greater(t, cfg.Retry.MaxAttempts, uint64(0))
}

func TestLoad_NoPath_ReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: postgres\npostgres:\n  dsn: postgres://x\n  max_conns: 20\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "postgres://x", cfg.Postgres.DSN)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("FHIRSQL_DIALECT", "postgres")
	t.Setenv("FHIRSQL_POSTGRES_DSN", "postgres://from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "postgres://from-env", cfg.Postgres.DSN)
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
