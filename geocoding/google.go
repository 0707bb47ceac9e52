// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleMapsEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// GoogleOption customizes a GoogleMapsGeocoder.
type GoogleOption func(*GoogleMapsGeocoder)

// WithEndpoint overrides the Google endpoint, mostly for tests.
func WithEndpoint(endpoint string) GoogleOption {
	return func(g *GoogleMapsGeocoder) { g.endpoint = endpoint }
}

// WithHTTPClient replaces the default 10 second timeout client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleMapsGeocoder) { g.httpClient = c }
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, opts ...GoogleOption) *GoogleMapsGeocoder {
	g := &GoogleMapsGeocoder{
		apiKey:   apiKey,
		endpoint: googleMapsEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

func statusError(status, message string) *GeocodingError {
	e := &GeocodingError{Message: message}

	switch status {
	case "ZERO_RESULTS":
		e.Type = ErrorTypeNotFound
		if e.Message == "" {
			e.Message = "indirizzo non trovato"
		}
	case "OVER_QUERY_LIMIT":
		e.Type = ErrorTypeRateLimit
	case "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		e.Type = ErrorTypeQuotaExceeded
	case "INVALID_REQUEST":
		e.Type = ErrorTypeInvalidRequest
	default:
		e.Type = ErrorTypeUnknown
	}

	if e.Message == "" {
		e.Message = "google maps status: " + status
	}

	return e
}

func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, addr Address) (*Result, error) {
	if g.apiKey == "" {
		return nil, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "chiave API di geocodifica non configurata"}
	}

	params := url.Values{}
	params.Set("address", addr.Query())
	params.Set("key", g.apiKey)
	params.Set("region", "it")
	params.Set("language", "it")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, transportError(fmt.Errorf("decoding response: %w", err))
	}

	if gmResp.Status != "OK" {
		return nil, statusError(gmResp.Status, gmResp.ErrorMessage)
	}

	if len(gmResp.Results) == 0 {
		return nil, statusError("ZERO_RESULTS", "")
	}

	result := gmResp.Results[0]

	confidence := "low"

	switch result.Geometry.LocationType {
	case "ROOFTOP":
		confidence = "high"
	case "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	}

	return &Result{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
		Confidence:       confidence,
		Provider:         "google_maps",
	}, nil
}
