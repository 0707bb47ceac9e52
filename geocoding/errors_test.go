// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"rate limit error type", &GeocodingError{Type: ErrorTypeRateLimit, Message: "slow down"}, true},
		{"message contains rate limit", errors.New("rate limit exceeded"), true},
		{"message contains 429", errors.New("proxy returned status 429"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"quota exceeded error type", &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "quota"}, true},
		{"over_query_limit", errors.New("google maps status: OVER_QUERY_LIMIT"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsQuotaExceededError)
}

func TestTransportErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"deadline", fmt.Errorf("calling proxy: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"refused", errors.New("dial tcp: connection refused"), ErrorTypeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transportError(tt.err)
			if got.Type != tt.want {
				t.Errorf("transportError().Type = %v, want %v", got.Type, tt.want)
			}

			if !errors.Is(got, tt.err) {
				t.Errorf("transportError() does not wrap %v", tt.err)
			}
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
		wantType   ErrorType
		wantMsg    string
	}{
		{"429 keeps provider message", 429, "slow down", ErrorTypeRateLimit, "slow down"},
		{"403", 403, "", ErrorTypeQuotaExceeded, "quota esaurita o accesso negato"},
		{"400", 400, "", ErrorTypeInvalidRequest, "richiesta non valida"},
		{"404 with message", 404, "not found", ErrorTypeNotFound, "not found"},
		{"504", 504, "", ErrorTypeTimeout, "timeout del servizio (codice 504)"},
		{"503", 503, "", ErrorTypeNetworkError, "servizio non disponibile (codice 503)"},
		{"500", 500, "", ErrorTypeUnknown, "errore HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyHTTPError(tt.statusCode, tt.message)
			if got.Type != tt.wantType {
				t.Errorf("ClassifyHTTPError() type = %v, want %v", got.Type, tt.wantType)
			}

			if got.Message != tt.wantMsg {
				t.Errorf("ClassifyHTTPError() message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestStatusCodeRoundTrip(t *testing.T) {
	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusForbidden,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusGatewayTimeout,
		http.StatusBadGateway,
	} {
		if got := StatusCode(ClassifyHTTPError(code, "")); got != code {
			t.Errorf("StatusCode(ClassifyHTTPError(%d)) = %d", code, got)
		}
	}

	if got := StatusCode(errors.New("plain")); got != http.StatusBadGateway {
		t.Errorf("StatusCode(plain) = %d, want %d", got, http.StatusBadGateway)
	}
}

func TestGeocodingErrorUnwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	geoErr := &GeocodingError{
		Type:    ErrorTypeNetworkError,
		Message: unreachableMessage,
		Err:     innerErr,
	}

	if !errors.Is(geoErr, innerErr) {
		t.Error("errors.Is should find wrapped error")
	}

	if got := Reason(fmt.Errorf("row 3: %w", geoErr)); got != unreachableMessage {
		t.Errorf("Reason() = %q, want %q", got, unreachableMessage)
	}
}
