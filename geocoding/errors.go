// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GeocodingError rappresenta un errore di geocodifica.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifica gli errori di geocodifica.
type ErrorType int

const (
	// ErrorTypeUnknown errore sconosciuto.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit limite di richieste raggiunto.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota esaurita.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout timeout della richiesta.
	ErrorTypeTimeout
	// ErrorTypeNotFound indirizzo non trovato.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest richiesta non valida.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError errore di rete.
	ErrorTypeNetworkError
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network_error",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// Messaggio generico per i guasti di trasporto.
const unreachableMessage = "servizio di geocodifica non raggiungibile"

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// Reason restituisce il messaggio da mostrare accanto alla riga.
func Reason(err error) string {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Message
	}

	return err.Error()
}

// transportError normalizza un guasto di rete o di decodifica.
func transportError(err error) *GeocodingError {
	t := ErrorTypeNetworkError
	if errors.Is(err, context.DeadlineExceeded) {
		t = ErrorTypeTimeout
	}

	return &GeocodingError{Type: t, Message: unreachableMessage, Err: err}
}

// IsRateLimitError verifica se l'errore è dovuto al limite di richieste.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError verifica se l'errore è dovuto alla quota esaurita.
func IsQuotaExceededError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// Google Maps
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// ClassifyHTTPError classifica un codice HTTP in un tipo di errore di geocodifica.
func ClassifyHTTPError(statusCode int, message string) *GeocodingError {
	e := &GeocodingError{Message: message}

	switch statusCode {
	case http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		if e.Message == "" {
			e.Message = "limite di richieste raggiunto"
		}
	case http.StatusForbidden:
		e.Type = ErrorTypeQuotaExceeded
		if e.Message == "" {
			e.Message = "quota esaurita o accesso negato"
		}
	case http.StatusBadRequest:
		e.Type = ErrorTypeInvalidRequest
		if e.Message == "" {
			e.Message = "richiesta non valida"
		}
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		e.Type = ErrorTypeNotFound
		if e.Message == "" {
			e.Message = "indirizzo non trovato"
		}
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		e.Type = ErrorTypeTimeout
		if e.Message == "" {
			e.Message = fmt.Sprintf("timeout del servizio (codice %d)", statusCode)
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		e.Type = ErrorTypeNetworkError
		if e.Message == "" {
			e.Message = fmt.Sprintf("servizio non disponibile (codice %d)", statusCode)
		}
	default:
		e.Type = ErrorTypeUnknown
		if e.Message == "" {
			e.Message = fmt.Sprintf("errore HTTP %d", statusCode)
		}
	}

	return e
}

// StatusCode è l'inverso di ClassifyHTTPError, usato dal proxy.
func StatusCode(err error) int {
	var geoErr *GeocodingError
	if !errors.As(err, &geoErr) {
		return http.StatusBadGateway
	}

	switch geoErr.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeQuotaExceeded:
		return http.StatusForbidden
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeNetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
