// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists businesses, their users and their points of sale.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jcodagnone/storelocator/spatial"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Record is a point of sale owned by a business.
type Record struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id" validate:"required"`
	StoreName  string    `json:"store_name"  validate:"required,max=200"`
	Brand      string    `json:"brand"       validate:"required,max=200"`
	Address    string    `json:"address"     validate:"required,max=500"`
	City       string    `json:"city"        validate:"required,max=200"`
	Province   string    `json:"province"    validate:"max=100"`
	Latitude   *float64  `json:"latitude"    validate:"omitempty,latitude"`
	Longitude  *float64  `json:"longitude"   validate:"omitempty,longitude"`
	Services   []string  `json:"services"    validate:"dive,max=100"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Point returns the record location, if any.
func (r *Record) Point() (spatial.Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return spatial.Point{}, false
	}

	return spatial.Point{Lat: *r.Latitude, Lng: *r.Longitude}, true
}

// Match is a search hit with its distance from the search center, in meters.
type Match struct {
	*Record
	Distance float64 `json:"distance_m"`
}

// Business is a registered producer.
type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"    validate:"required,max=200"`
	Email     string    `json:"email"   validate:"omitempty,email"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account able to sign in.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"     validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository defines the interface for database operations.
type Repository interface {
	// CreateSchema creates the tables if missing
	CreateSchema(ctx context.Context) error

	//////// Stores
	// InsertStores writes all records in one transaction, or none of them
	InsertStores(ctx context.Context, records []*Record) error
	// ListStores returns the stores of a business
	ListStores(ctx context.Context, businessID string) ([]*Record, error)
	// SearchBrand returns active stores whose brand or name contains query
	SearchBrand(ctx context.Context, query string) ([]*Record, error)
	// SearchNearby returns active located stores within radiusKm of center, closest first
	SearchNearby(ctx context.Context, center spatial.Point, radiusKm float64, brand string) ([]Match, error)
	// DeleteStore removes a store
	DeleteStore(ctx context.Context, id string) error

	//////// Businesses
	CreateBusiness(ctx context.Context, b *Business) error
	GetBusiness(ctx context.Context, id string) (*Business, error)
	FindBusinessByUserID(ctx context.Context, userID string) (*Business, error)
	FindBusinessByEmail(ctx context.Context, email string) (*Business, error)
	LinkBusinessUser(ctx context.Context, businessID, userID string) error

	//////// Users
	CreateUser(ctx context.Context, u *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	Close() error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRecords checks every record before a batch write.
func ValidateRecords(records []*Record) error {
	for i, r := range records {
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("invalid store record %d (%s): %w", i, r.StoreName, err)
		}
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// located filters candidates down to those within radiusKm of center and
// sorts them by distance.
func located(candidates []*Record, center spatial.Point, radiusKm float64) []Match {
	limit := radiusKm * 1000
	matches := make([]Match, 0, len(candidates))

	for _, r := range candidates {
		p, ok := r.Point()
		if !ok {
			continue
		}

		if d := center.HaversineDistance(&p); d <= limit {
			matches = append(matches, Match{Record: r, Distance: d})
		}
	}

	sortMatches(matches)

	return matches
}

func sortMatches(matches []Match) {
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}

		return cmp.Compare(a.StoreName, b.StoreName)
	})
}

// cellsOf returns the H3 cells of a record, or nil cells when it has no location.
func cellsOf(r *Record) (coarse, fine *int64, err error) {
	p, ok := r.Point()
	if !ok {
		return nil, nil, nil
	}

	cells, err := spatial.CellsOf(p)
	if err != nil {
		return nil, nil, err
	}

	return &cells.Coarse, &cells.Fine, nil
}

// anyToStringSlice converts a LIST value returned by the driver to []string.
func anyToStringSlice(v any) ([]string, bool) {
	if v == nil {
		return nil, true
	}

	if i, ok := v.([]string); ok {
		return i, true
	}

	if i, ok := v.([]any); ok {
		s := make([]string, len(i))

		for j, e := range i {
			val, ok := e.(string)
			if !ok {
				return nil, false
			}

			s[j] = val
		}

		return s, true
	}

	return nil, false
}
