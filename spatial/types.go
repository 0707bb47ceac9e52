// Copyright 2025 The StoreLocator Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// H3 resolutions stored alongside every located store.
const (
	CoarseResolution = 5
	FineResolution   = 7
)

// average hexagon edge length, in km, for the stored resolutions.
const (
	coarseEdgeKm = 8.544408276
	fineEdgeKm   = 1.406475763
)

// maxRings bounds the size of a cell disk; past it a search falls back to a full scan.
const maxRings = 40

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Cells holds the H3 cells of a point at the stored resolutions.
type Cells struct {
	Coarse int64
	Fine   int64
}

// CellsOf computes the H3 cells containing p.
func CellsOf(p Point) (Cells, error) {
	latLng := h3.NewLatLng(p.Lat, p.Lng)

	coarse, err := h3.LatLngToCell(latLng, CoarseResolution)
	if err != nil {
		return Cells{}, fmt.Errorf("error converting to h3 cell at res %d: %w", CoarseResolution, err)
	}

	fine, err := h3.LatLngToCell(latLng, FineResolution)
	if err != nil {
		return Cells{}, fmt.Errorf("error converting to h3 cell at res %d: %w", FineResolution, err)
	}

	return Cells{Coarse: int64(coarse), Fine: int64(fine)}, nil
}

// Cover is the set of cells, at a single resolution, that covers a circle.
type Cover struct {
	Resolution int
	Cells      []int64
}

// CoverRadius returns the cells within radiusKm of center. The fine resolution
// is used for small radii. ok is false when the circle is too large to cover
// with a bounded number of cells and callers should scan instead.
func CoverRadius(center Point, radiusKm float64) (cover Cover, ok bool, err error) {
	res, edge := FineResolution, fineEdgeKm
	if radiusKm > 5 {
		res, edge = CoarseResolution, coarseEdgeKm
	}

	rings := int(math.Ceil(radiusKm/edge)) + 1
	if rings > maxRings {
		return Cover{}, false, nil
	}

	origin, err := h3.LatLngToCell(h3.NewLatLng(center.Lat, center.Lng), res)
	if err != nil {
		return Cover{}, false, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	disk, err := h3.GridDisk(origin, rings)
	if err != nil {
		return Cover{}, false, fmt.Errorf("computing grid disk: %w", err)
	}

	cells := make([]int64, 0, len(disk))
	for _, c := range disk {
		cells = append(cells, int64(c))
	}

	return Cover{Resolution: res, Cells: cells}, true, nil
}
