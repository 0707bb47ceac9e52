// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ProxyRequest is the body accepted by the geocoding proxy.
type ProxyRequest struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province"`
}

// ProxyResponse is the body returned by the geocoding proxy. Error is only
// set on non-2xx replies.
type ProxyResponse struct {
	Lat              *float64 `json:"lat,omitempty"`
	Lng              *float64 `json:"lng,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// ProxyClient calls the geocoding proxy, which owns the upstream API key.
// It shapes the request and normalizes the response; it never retries.
type ProxyClient struct {
	url        string
	httpClient *http.Client
}

// NewProxyClient creates a client for the proxy at url. A nil httpClient
// means http.DefaultClient; per-call deadlines come from the context.
func NewProxyClient(url string, httpClient *http.Client) *ProxyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &ProxyClient{url: url, httpClient: httpClient}
}

func (c *ProxyClient) Geocode(ctx context.Context, addr Address) (*Result, error) {
	body, err := json.Marshal(ProxyRequest{
		Address:  addr.Street,
		City:     addr.City,
		Province: addr.Province,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding geocoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, transportError(fmt.Errorf("reading response: %w", err))
	}

	var out ProxyResponse

	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// the provider's message wins; the status code only picks the type
		return nil, ClassifyHTTPError(resp.StatusCode, out.Error)
	}

	if decodeErr != nil {
		return nil, transportError(fmt.Errorf("decoding response: %w", decodeErr))
	}

	if out.Error != "" {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: out.Error}
	}

	if out.Lat == nil || out.Lng == nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "risposta di geocodifica senza coordinate"}
	}

	return &Result{
		Latitude:         *out.Lat,
		Longitude:        *out.Lng,
		FormattedAddress: out.FormattedAddress,
		Provider:         "proxy",
	}, nil
}
