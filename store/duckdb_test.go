// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jcodagnone/storelocator/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) Repository {
	t.Helper()

	repo, err := Open(context.Background(), DriverDuckDB, "")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func ptr(f float64) *float64 { return &f }

func seedBusiness(t *testing.T, repo Repository) *Business {
	t.Helper()

	b := &Business{Name: "Conad Adriatico", Email: "Info@Conad.example"}
	require.NoError(t, repo.CreateBusiness(context.Background(), b))

	return b
}

func TestInsertAndListStores(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	records := []*Record{
		{
			BusinessID: b.ID,
			StoreName:  "Conad Via Roma",
			Brand:      "Conad",
			Address:    "Via Roma 1",
			City:       "Ancona",
			Province:   "AN",
			Latitude:   ptr(43.6),
			Longitude:  ptr(13.5),
			Services:   []string{"Alimentari"},
			Active:     true,
		},
		{
			BusinessID: b.ID,
			StoreName:  "Conad City Corso",
			Brand:      "Conad",
			Address:    "Corso Garibaldi 10",
			City:       "Ancona",
			Active:     true,
		},
	}

	require.NoError(t, repo.InsertStores(ctx, records))

	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	}

	got, err := repo.ListStores(ctx, b.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(records, got,
		cmpopts.IgnoreFields(Record{}, "CreatedAt"),
		cmpopts.SortSlices(func(a, b *Record) bool { return a.StoreName < b.StoreName }),
		cmpopts.EquateEmpty(),
	); diff != "" {
		t.Errorf("ListStores() mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertStoresIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	err := repo.InsertStores(ctx, []*Record{
		{BusinessID: b.ID, StoreName: "A", Brand: "Conad", Address: "Via A", City: "Ancona", Active: true},
		{BusinessID: "missing-business", StoreName: "B", Brand: "Conad", Address: "Via B", City: "Ancona", Active: true},
	})
	require.Error(t, err)

	got, err := repo.ListStores(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertStoresValidation(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	tests := []struct {
		name   string
		record *Record
	}{
		{"missing business", &Record{StoreName: "A", Brand: "B", Address: "C", City: "D"}},
		{"missing name", &Record{BusinessID: b.ID, Brand: "B", Address: "C", City: "D"}},
		{"latitude out of range", &Record{BusinessID: b.ID, StoreName: "A", Brand: "B", Address: "C", City: "D", Latitude: ptr(95), Longitude: ptr(13)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, repo.InsertStores(ctx, []*Record{tt.record}))
		})
	}
}

func TestSearchBrand(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	require.NoError(t, repo.InsertStores(ctx, []*Record{
		{BusinessID: b.ID, StoreName: "Conad Via Roma", Brand: "Conad", Address: "Via Roma 1", City: "Ancona", Active: true},
		{BusinessID: b.ID, StoreName: "Coop Centro", Brand: "Coop", Address: "Piazza Cavour", City: "Ancona", Active: true},
		{BusinessID: b.ID, StoreName: "Conad Chiuso", Brand: "Conad", Address: "Via Chiusa", City: "Jesi", Active: false},
	}))

	got, err := repo.SearchBrand(ctx, "CONAD")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Conad Via Roma", got[0].StoreName)

	got, err = repo.SearchBrand(ctx, "centro")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Coop", got[0].Brand)
}

func TestSearchNearby(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	require.NoError(t, repo.InsertStores(ctx, []*Record{
		{BusinessID: b.ID, StoreName: "Ancona Centro", Brand: "Conad", Address: "Via Roma 1", City: "Ancona",
			Latitude: ptr(43.6167), Longitude: ptr(13.5167), Active: true},
		{BusinessID: b.ID, StoreName: "Ancona Porto", Brand: "Conad", Address: "Via XXIX Settembre", City: "Ancona",
			Latitude: ptr(43.6200), Longitude: ptr(13.5050), Active: true},
		{BusinessID: b.ID, StoreName: "Macerata", Brand: "Conad", Address: "Corso Cavour", City: "Macerata",
			Latitude: ptr(43.3007), Longitude: ptr(13.4535), Active: true},
		{BusinessID: b.ID, StoreName: "Coop Ancona", Brand: "Coop", Address: "Via Marconi", City: "Ancona",
			Latitude: ptr(43.6160), Longitude: ptr(13.5170), Active: true},
		{BusinessID: b.ID, StoreName: "Senza coordinate", Brand: "Conad", Address: "Via Ignota", City: "Ancona", Active: true},
	}))

	center := spatial.Point{Lat: 43.6167, Lng: 13.5167}

	t.Run("small radius with brand", func(t *testing.T) {
		got, err := repo.SearchNearby(ctx, center, 3, "conad")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Ancona Centro", got[0].StoreName)
		assert.Equal(t, "Ancona Porto", got[1].StoreName)
		assert.Less(t, got[0].Distance, got[1].Distance)
	})

	t.Run("large radius", func(t *testing.T) {
		got, err := repo.SearchNearby(ctx, center, 50, "")
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("unbounded radius scans", func(t *testing.T) {
		got, err := repo.SearchNearby(ctx, center, 2000, "conad")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestDeleteStore(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	rec := &Record{BusinessID: b.ID, StoreName: "A", Brand: "B", Address: "C", City: "D", Active: true}
	require.NoError(t, repo.InsertStores(ctx, []*Record{rec}))

	require.NoError(t, repo.DeleteStore(ctx, rec.ID))
	assert.True(t, errors.Is(repo.DeleteStore(ctx, rec.ID), ErrNotFound))
}

func TestBusinessLookups(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	b := seedBusiness(t, repo)

	_, err := repo.FindBusinessByUserID(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := repo.FindBusinessByEmail(ctx, " INFO@conad.example ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)
	assert.Equal(t, "info@conad.example", found.Email)

	require.NoError(t, repo.LinkBusinessUser(ctx, b.ID, "u-1"))

	found, err = repo.FindBusinessByUserID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	found, err = repo.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", found.UserID)

	assert.ErrorIs(t, repo.LinkBusinessUser(ctx, "nope", "u-2"), ErrNotFound)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	u := &User{Email: "Mario@Example.it", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := repo.FindUserByEmail(ctx, "mario@example.it")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.Error(t, repo.CreateUser(ctx, &User{Email: "mario@example.it", PasswordHash: "x"}))

	_, err = repo.FindUserByEmail(ctx, "nobody@example.it")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
