// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding turns postal addresses into coordinates.
package geocoding

import (
	"context"
	"strings"
)

// Country is appended to every query sent upstream.
const Country = "Italia"

// Address is the free-text address of a point of sale.
type Address struct {
	Street   string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province"`
}

// Query builds the full upstream query: "{address}, {city}, {province}, Italia".
// Blank parts are left out, so a missing city or province never yields an
// empty ", ," segment.
func (a Address) Query() string {
	parts := make([]string, 0, 4)

	for _, p := range []string{a.Street, a.City, a.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(append(parts, Country), ", ")
}

// Result represents a geocoding result from any provider.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Confidence       string // high, medium, low
	Provider         string
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) (*Result, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, addr Address) (*Result, error)

// Geocode calls f.
func (f GeocoderFunc) Geocode(ctx context.Context, addr Address) (*Result, error) {
	return f(ctx, addr)
}
