// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jcodagnone/storelocator/geocoding"
	"github.com/jcodagnone/storelocator/store"
)

// stubGeocoder answers from a table keyed by street and records every call.
type stubGeocoder struct {
	mu      sync.Mutex
	results map[string]*geocoding.Result
	errs    map[string]error
	calls   []time.Time
	streets []string
}

func newStubGeocoder() *stubGeocoder {
	return &stubGeocoder{
		results: make(map[string]*geocoding.Result),
		errs:    make(map[string]error),
	}
}

func (s *stubGeocoder) ok(street string, lat, lng float64) *stubGeocoder {
	s.results[street] = &geocoding.Result{Latitude: lat, Longitude: lng, Provider: "stub"}

	return s
}

func (s *stubGeocoder) fail(street, message string) *stubGeocoder {
	s.errs[street] = &geocoding.GeocodingError{Type: geocoding.ErrorTypeNotFound, Message: message}

	return s
}

func (s *stubGeocoder) failWith(street string, err error) *stubGeocoder {
	s.errs[street] = err

	return s
}

func (s *stubGeocoder) Geocode(_ context.Context, addr geocoding.Address) (*geocoding.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, time.Now())
	s.streets = append(s.streets, addr.Street)

	if err, ok := s.errs[addr.Street]; ok {
		return nil, err
	}

	if res, ok := s.results[addr.Street]; ok {
		return res, nil
	}

	return nil, errors.New("unexpected address " + addr.Street)
}

func (s *stubGeocoder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

// recordingStore captures every batch handed to InsertStores.
type recordingStore struct {
	batches [][]*store.Record
	err     error
}

func (r *recordingStore) InsertStores(_ context.Context, records []*store.Record) error {
	r.batches = append(r.batches, records)

	return r.err
}

func pendingRow(name, street string) *Row {
	return &Row{
		StoreName: name,
		Brand:     "Conad",
		Address:   street,
		City:      "Ancona",
		Province:  "AN",
		Category:  "Alimentari",
		Status:    StatusPending,
	}
}

func fptr(f float64) *float64 { return &f }
