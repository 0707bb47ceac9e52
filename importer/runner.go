// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcodagnone/storelocator/geocoding"
)

const (
	// DefaultDelay is the pause after every geocoding attempt.
	DefaultDelay = 500 * time.Millisecond
	// DefaultCallTimeout bounds a single geocoding call.
	DefaultCallTimeout = 10 * time.Second
)

// ErrUpstreamStopped is returned by Run when the geocoder refuses further
// calls; it wraps the geocoder error.
var ErrUpstreamStopped = errors.New("geocodifica sospesa dal servizio")

// UpstreamExhausted reports whether err means the geocoder will keep
// refusing calls for a while, so going on would only fail every row.
func UpstreamExhausted(err error) bool {
	return geocoding.IsQuotaExceededError(err) || geocoding.IsRateLimitError(err)
}

// Progress is reported after every processed row.
type Progress struct {
	Index int  // position of the row in the slice given to Run
	Row   *Row // the row, after its status changed
	Done  int
	Total int
}

// Summary counts the outcome of a pass.
type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Geocoded  int `json:"geocoded"`
	Failed    int `json:"failed"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d", s.Geocoded, s.Total)
}

// Runner geocodes rows one at a time, pausing between calls to stay within
// the upstream rate limit.
type Runner struct {
	Geocoder    geocoding.Geocoder
	Delay       time.Duration
	CallTimeout time.Duration
	OnProgress  func(Progress)

	// StopOn, when set and true for a call error, ends the pass: the row
	// stays pending and Run returns ErrUpstreamStopped.
	StopOn func(error) bool
}

// NewRunner returns a Runner with the default pacing and call timeout that
// stops when the upstream quota or rate limit is hit.
func NewRunner(g geocoding.Geocoder) *Runner {
	return &Runner{
		Geocoder:    g,
		Delay:       DefaultDelay,
		CallTimeout: DefaultCallTimeout,
		StopOn:      UpstreamExhausted,
	}
}

// Run geocodes every pending row in order. A failed row is marked and the
// pass goes on. When ctx is cancelled Run stops before the next row, leaves
// the remaining rows pending and returns the partial summary with ctx.Err().
func (r *Runner) Run(ctx context.Context, rows []*Row) (Summary, error) {
	var pending []int

	for i, row := range rows {
		if row.Status == StatusPending {
			pending = append(pending, i)
		}
	}

	summary := Summary{Total: len(pending)}

	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row := rows[i]

		res, err := r.geocode(ctx, row)
		if err != nil && ctx.Err() != nil {
			// interrupted mid-call, the row was never really attempted
			return summary, ctx.Err()
		}

		if err != nil && r.StopOn != nil && r.StopOn(err) {
			return summary, fmt.Errorf("%w: %w", ErrUpstreamStopped, err)
		}

		if err != nil {
			row.markFailed(geocoding.Reason(err))
			summary.Failed++
		} else {
			row.markGeocoded(res)
			summary.Geocoded++
		}

		summary.Processed++

		if r.OnProgress != nil {
			r.OnProgress(Progress{Index: i, Row: row, Done: summary.Processed, Total: summary.Total})
		}

		if err := r.pause(ctx); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (r *Runner) geocode(ctx context.Context, row *Row) (*geocoding.Result, error) {
	callCtx := ctx

	if r.CallTimeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, r.CallTimeout)
		defer cancel()
	}

	res, err := r.Geocoder.Geocode(callCtx, row.GeocodingAddress())
	if err == nil && res == nil {
		err = &geocoding.GeocodingError{Type: geocoding.ErrorTypeUnknown, Message: "nessun risultato"}
	}

	return res, err
}

func (r *Runner) pause(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(r.Delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
