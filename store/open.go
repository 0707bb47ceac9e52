// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Open opens the repository for driver and ensures its schema exists. For
// duckdb the dsn is a file path; for postgres it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	var (
		repo Repository
		err  error
	)

	switch driver {
	case DriverDuckDB, "":
		repo, err = OpenDuckDB(dsn)
	case DriverPostgres:
		repo, err = OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if err != nil {
		return nil, err
	}

	if err := repo.CreateSchema(ctx); err != nil {
		repo.Close()

		return nil, err
	}

	return repo, nil
}
