// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the storelocator options from defaults, an optional
// YAML file, the environment (and a .env file) and command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jcodagnone/storelocator/store"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables. Secrets are only read from the environment.
const (
	EnvGoogleMapsAPIKey = "GOOGLE_MAPS_API_KEY"
	EnvGoogleProject    = "GOOGLE_CLOUD_PROJECT"
	EnvJWTSecret        = "STORELOCATOR_JWT_SECRET"
	EnvDatabaseURL      = "DATABASE_URL"
)

// Flag names shared with the cmd package.
const (
	FlagDbPath        = "db-path"
	FlagDriver        = "driver"
	FlagTraceHTTP     = "trace-http"
	FlagTraceHTTPBody = "trace-http-body"
	FlagAddr          = "addr"
	FlagProxyURL      = "proxy-url"
	FlagDelay         = "delay"
	FlagCallTimeout   = "call-timeout"
)

// DuckDBFile is the database file name inside DbPath.
const DuckDBFile = "storelocator.duckdb"

// Options configuration for storelocator.
type Options struct {
	// DbPath is the directory holding the DuckDB database
	DbPath string `yaml:"db_path"`

	// Driver selects the store: duckdb or postgres
	Driver string `yaml:"driver"`

	// DatabaseURL is the PostgreSQL connection URL
	DatabaseURL string `yaml:"-"`

	// Addr is the listen address of the HTTP server
	Addr string `yaml:"addr"`

	// ProxyURL is the geocoding proxy used by the importer
	ProxyURL string `yaml:"proxy_url"`

	// GeocodeDelay is the pause after every geocoding attempt
	GeocodeDelay time.Duration `yaml:"geocode_delay"`

	// CallTimeout bounds every geocoding call
	CallTimeout time.Duration `yaml:"call_timeout"`

	// RateLimit is the number of proxy requests per second allowed per client
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the burst size of the proxy rate limiter
	RateBurst int `yaml:"rate_burst"`

	// SessionIdle drops import sessions not used for this long
	SessionIdle time.Duration `yaml:"session_idle"`

	// TokenTTL is the lifetime of issued session tokens
	TokenTTL time.Duration `yaml:"token_ttl"`

	// BcryptCost is the cost used to hash passwords
	BcryptCost int `yaml:"bcrypt_cost"`

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool `yaml:"trace_http"`

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool `yaml:"trace_http_body"`

	GoogleMapsAPIKey string `yaml:"-"`
	GoogleProject    string `yaml:"-"`
	JWTSecret        string `yaml:"-"`
}

// Default returns the built-in options.
func Default() *Options {
	return &Options{
		DbPath:       "db",
		Driver:       store.DriverDuckDB,
		Addr:         "localhost:8080",
		ProxyURL:     "http://localhost:8080/api/geocode",
		GeocodeDelay: 500 * time.Millisecond,
		CallTimeout:  10 * time.Second,
		RateLimit:    5,
		RateBurst:    10,
		SessionIdle:  30 * time.Minute,
		TokenTTL:     24 * time.Hour,
		BcryptCost:   12,
	}
}

// Load builds the options from the defaults, the YAML file at path (if not
// empty) and the environment. Values in envFiles fill variables missing from
// the process environment; with no envFiles a .env in the working directory
// is used when present.
func Load(path string, envFiles ...string) (*Options, error) {
	opts := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	dotenv, err := readDotEnv(envFiles)
	if err != nil {
		return nil, err
	}

	opts.applyEnv(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}

		return dotenv[key]
	})

	return opts, nil
}

func readDotEnv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		files = []string{".env"}
	}

	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("reading env files: %w", err)
	}

	return env, nil
}

func (o *Options) applyEnv(getenv func(string) string) {
	if v := getenv(EnvGoogleMapsAPIKey); v != "" {
		o.GoogleMapsAPIKey = v
	}

	if v := getenv(EnvGoogleProject); v != "" {
		o.GoogleProject = v
	}

	if v := getenv(EnvJWTSecret); v != "" {
		o.JWTSecret = v
	}

	if v := getenv(EnvDatabaseURL); v != "" {
		o.DatabaseURL = v
	}
}

// Override copies the fields of f whose flag was set on the command line.
func (o *Options) Override(f *Options, changed func(flag string) bool) {
	if changed(FlagDbPath) {
		o.DbPath = f.DbPath
	}

	if changed(FlagDriver) {
		o.Driver = f.Driver
	}

	if changed(FlagTraceHTTP) {
		o.EnableHTTPTrace = f.EnableHTTPTrace
	}

	if changed(FlagTraceHTTPBody) {
		o.EnableHTTPBodyTrace = f.EnableHTTPBodyTrace
	}

	if changed(FlagAddr) {
		o.Addr = f.Addr
	}

	if changed(FlagProxyURL) {
		o.ProxyURL = f.ProxyURL
	}

	if changed(FlagDelay) {
		o.GeocodeDelay = f.GeocodeDelay
	}

	if changed(FlagCallTimeout) {
		o.CallTimeout = f.CallTimeout
	}
}

// Validate checks that the options have usable values.
func (o *Options) Validate() error {
	switch o.Driver {
	case store.DriverDuckDB:
	case store.DriverPostgres:
		if o.DatabaseURL == "" {
			return fmt.Errorf("config error: driver %q needs %s", o.Driver, EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("config error: unknown driver %q", o.Driver)
	}

	if o.GeocodeDelay < 0 {
		return fmt.Errorf("config error: 'geocode_delay' must be non-negative")
	}

	if o.CallTimeout <= 0 {
		return fmt.Errorf("config error: 'call_timeout' must be positive")
	}

	if o.RateLimit <= 0 || o.RateBurst <= 0 {
		return fmt.Errorf("config error: 'rate_limit' and 'rate_burst' must be positive")
	}

	if o.SessionIdle <= 0 {
		return fmt.Errorf("config error: 'session_idle' must be positive")
	}

	if o.BcryptCost < 4 || o.BcryptCost > 31 {
		return fmt.Errorf("config error: 'bcrypt_cost' out of range: %d (must be 4-31)", o.BcryptCost)
	}

	return nil
}

// DSN returns the data source for the configured driver.
func (o *Options) DSN() string {
	if o.Driver == store.DriverPostgres {
		return o.DatabaseURL
	}

	return filepath.Join(o.DbPath, DuckDBFile)
}
