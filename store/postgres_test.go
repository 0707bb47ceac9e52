// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"os"
	"testing"

	"github.com/jcodagnone/storelocator/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres skips unless STORELOCATOR_TEST_DATABASE_URL points at a
// disposable database.
func setupPostgres(t *testing.T) Repository {
	t.Helper()

	url := os.Getenv("STORELOCATOR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STORELOCATOR_TEST_DATABASE_URL not set")
	}

	repo, err := Open(context.Background(), DriverPostgres, url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestPostgresInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	b := &Business{Name: "Integration Test Business"}
	require.NoError(t, repo.CreateBusiness(ctx, b))

	rec := &Record{
		BusinessID: b.ID,
		StoreName:  "Conad Via Roma",
		Brand:      "ConadIntegration",
		Address:    "Via Roma 1",
		City:       "Ancona",
		Province:   "AN",
		Latitude:   ptr(43.6),
		Longitude:  ptr(13.5),
		Services:   []string{"Alimentari"},
		Active:     true,
	}
	require.NoError(t, repo.InsertStores(ctx, []*Record{rec}))
	t.Cleanup(func() { _ = repo.DeleteStore(context.Background(), rec.ID) })

	got, err := repo.ListStores(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Alimentari"}, got[0].Services)

	matches, err := repo.SearchNearby(ctx, spatial.Point{Lat: 43.6, Lng: 13.5}, 1, "conadintegration")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, rec.ID, matches[0].ID)
}

func TestPostgresForeignKeyRejectsBatch(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	err := repo.InsertStores(ctx, []*Record{{
		BusinessID: "00000000-0000-0000-0000-000000000000",
		StoreName:  "Orphan",
		Brand:      "Nobody",
		Address:    "Via Nessuna",
		City:       "Ancona",
		Active:     true,
	}})
	assert.Error(t, err)
}
