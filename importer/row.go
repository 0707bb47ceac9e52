// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

// Package importer implements the bulk store import pipeline: parse a CSV
// upload, geocode every row with pacing and persist the rows that geocoded.
package importer

import (
	"github.com/jcodagnone/storelocator/geocoding"
)

// Status is the geocoding state of a Row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusGeocoded Status = "geocoded"
	StatusError    Status = "error"
)

// Row is one candidate store parsed from an upload.
type Row struct {
	StoreName string   `json:"store_name"`
	Brand     string   `json:"brand"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Province  string   `json:"province"`
	Category  string   `json:"category"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Status    Status   `json:"status"`
	Error     string   `json:"error,omitempty"`
}

// GeocodingAddress returns the address sent to the geocoder.
func (r *Row) GeocodingAddress() geocoding.Address {
	return geocoding.Address{Street: r.Address, City: r.City, Province: r.Province}
}

func (r *Row) markGeocoded(res *geocoding.Result) {
	lat, lng := res.Latitude, res.Longitude
	r.Latitude, r.Longitude = &lat, &lng
	r.Status = StatusGeocoded
	r.Error = ""
}

func (r *Row) markFailed(reason string) {
	if reason == "" {
		reason = "errore sconosciuto"
	}

	r.Latitude, r.Longitude = nil, nil
	r.Status = StatusError
	r.Error = reason
}

func (r *Row) reset() {
	r.Latitude, r.Longitude = nil, nil
	r.Status = StatusPending
	r.Error = ""
}

// Label projects a row status to the text shown next to it.
func Label(r *Row) string {
	switch r.Status {
	case StatusGeocoded:
		return "done"
	case StatusError:
		if r.Error != "" {
			return "failed: " + r.Error
		}

		return "failed"
	default:
		return "waiting"
	}
}

// CloneRows returns a deep copy of rows, safe to hand out while the
// originals keep changing.
func CloneRows(rows []*Row) []*Row {
	out := make([]*Row, len(rows))

	for i, r := range rows {
		c := *r
		if r.Latitude != nil {
			lat := *r.Latitude
			c.Latitude = &lat
		}

		if r.Longitude != nil {
			lng := *r.Longitude
			c.Longitude = &lng
		}

		out[i] = &c
	}

	return out
}
