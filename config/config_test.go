// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{EnvGoogleMapsAPIKey, EnvGoogleProject, EnvJWTSecret, EnvDatabaseURL} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	opts := Default()
	require.NoError(t, opts.Validate())
	assert.Equal(t, 500*time.Millisecond, opts.GeocodeDelay)
	assert.Equal(t, filepath.Join("db", DuckDBFile), opts.DSN())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	cfg := writeFile(t, dir, "storelocator.yaml", `
db_path: /var/lib/storelocator
driver: postgres
geocode_delay: 750ms
call_timeout: 3s
rate_limit: 2.5
`)
	env := writeFile(t, dir, "test.env", "DATABASE_URL=postgres://localhost/stores\nSTORELOCATOR_JWT_SECRET=from-dotenv-secret\n")

	t.Setenv(EnvJWTSecret, "from-process-secret")
	t.Setenv(EnvGoogleMapsAPIKey, "maps-key")

	opts, err := Load(cfg, env)
	require.NoError(t, err)
	require.NoError(t, opts.Validate())

	assert.Equal(t, "/var/lib/storelocator", opts.DbPath)
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, 750*time.Millisecond, opts.GeocodeDelay)
	assert.Equal(t, 3*time.Second, opts.CallTimeout)
	assert.InDelta(t, 2.5, opts.RateLimit, 1e-9)
	assert.Equal(t, 10, opts.RateBurst, "unset keys keep their default")

	assert.Equal(t, "postgres://localhost/stores", opts.DatabaseURL)
	assert.Equal(t, "postgres://localhost/stores", opts.DSN())
	assert.Equal(t, "from-process-secret", opts.JWTSecret, "process environment wins over .env")
	assert.Equal(t, "maps-key", opts.GoogleMapsAPIKey)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "bad.yaml", "jwt_secret: nope\n")

	_, err := Load(cfg, writeFile(t, t.TempDir(), "empty.env", ""))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)

	cfg := writeFile(t, t.TempDir(), "empty.yaml", "")

	opts, err := Load(cfg, writeFile(t, t.TempDir(), "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestOverride(t *testing.T) {
	opts := Default()
	flags := &Options{DbPath: "/tmp/x", Driver: "postgres", GeocodeDelay: time.Second, EnableHTTPTrace: true}

	changed := map[string]bool{FlagDbPath: true, FlagDelay: true, FlagTraceHTTP: true}
	opts.Override(flags, func(name string) bool { return changed[name] })

	assert.Equal(t, "/tmp/x", opts.DbPath)
	assert.Equal(t, time.Second, opts.GeocodeDelay)
	assert.True(t, opts.EnableHTTPTrace)
	assert.Equal(t, "duckdb", opts.Driver, "driver flag was not set")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown driver", func(o *Options) { o.Driver = "mysql" }},
		{"postgres without url", func(o *Options) { o.Driver = "postgres" }},
		{"negative delay", func(o *Options) { o.GeocodeDelay = -time.Second }},
		{"zero call timeout", func(o *Options) { o.CallTimeout = 0 }},
		{"zero rate", func(o *Options) { o.RateLimit = 0 }},
		{"zero idle", func(o *Options) { o.SessionIdle = 0 }},
		{"bcrypt cost", func(o *Options) { o.BcryptCost = 40 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.mutate(opts)
			assert.Error(t, opts.Validate())
		})
	}
}
