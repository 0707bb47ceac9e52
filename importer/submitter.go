// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"

	"github.com/jcodagnone/storelocator/store"
)

// PersistenceError is returned when the store rejected a submission. No row
// of the batch was written.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "salvataggio dei negozi non riuscito: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StoreWriter is the part of store.Repository the submitter needs.
type StoreWriter interface {
	InsertStores(ctx context.Context, records []*store.Record) error
}

// Submitter persists the geocoded rows of an import.
type Submitter struct {
	Store StoreWriter
}

// Records maps the geocoded rows to store records owned by businessID. Rows
// in any other status are left out.
func Records(businessID string, rows []*Row) []*store.Record {
	var records []*store.Record

	for _, row := range rows {
		if row.Status != StatusGeocoded {
			continue
		}

		rec := &store.Record{
			BusinessID: businessID,
			StoreName:  row.StoreName,
			Brand:      row.Brand,
			Address:    row.Address,
			City:       row.City,
			Province:   row.Province,
			Services:   []string{},
			Active:     true,
		}

		if row.Latitude != nil && row.Longitude != nil {
			lat, lng := *row.Latitude, *row.Longitude
			rec.Latitude, rec.Longitude = &lat, &lng
		}

		if row.Category != "" {
			rec.Services = []string{row.Category}
		}

		records = append(records, rec)
	}

	return records
}

// Submit writes the geocoded rows as one batch and returns how many were
// stored. With nothing to write the store is not called.
func (s *Submitter) Submit(ctx context.Context, businessID string, rows []*Row) (int, error) {
	records := Records(businessID, rows)
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.Store.InsertStores(ctx, records); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	return len(records), nil
}
