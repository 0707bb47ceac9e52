// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when a geocoding pass is already running.
	ErrBusy = errors.New("geocodifica già in corso")
	// ErrRowIndex is returned for a row index outside the session.
	ErrRowIndex = errors.New("riga inesistente")
	// ErrNothingToSubmit is returned by Submit when no row is geocoded.
	ErrNothingToSubmit = errors.New("nessun negozio geocodificato da salvare")
)

// RowEdit is a manual correction of a row. Empty fields keep their value.
type RowEdit struct {
	StoreName string `json:"store_name"`
	Brand     string `json:"brand"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Category  string `json:"category"`
}

func (e *RowEdit) apply(r *Row) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}

	set(&r.StoreName, e.StoreName)
	set(&r.Brand, e.Brand)
	set(&r.Address, e.Address)
	set(&r.City, e.City)
	set(&r.Province, e.Province)
	set(&r.Category, e.Category)
}

// Session is one import: upload, geocode, submit. It ends when the rows are
// submitted or the session is reset.
//
// Rows are only changed by the running pass; readers get copies.
type Session struct {
	ID      string
	OwnerID string

	runner    Runner
	submitter *Submitter

	mu      sync.Mutex
	rows    []*Row
	skipped []SkippedLine
	running bool
	summary *Summary
}

// NewSession creates an empty session. The runner is used as a template:
// its pacing and timeout apply to every pass.
func NewSession(runner *Runner, submitter *Submitter) *Session {
	return &Session{
		ID:        uuid.NewString(),
		runner:    *runner,
		submitter: submitter,
	}
}

// Load parses an upload and replaces the session rows. On a parse error the
// previous rows are kept.
func (s *Session) Load(r io.Reader) (*ParseResult, error) {
	res, err := Parse(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, ErrBusy
	}

	s.rows, s.skipped, s.summary = res.Rows, res.Skipped, nil

	return res, nil
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ID      string        `json:"id"`
	Rows    []*Row        `json:"rows"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
	Running bool          `json:"running"`
	Summary *Summary      `json:"summary,omitempty"`
}

// Snapshot returns a copy of the rows and the last pass summary.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:      s.ID,
		Rows:    CloneRows(s.rows),
		Skipped: append([]SkippedLine(nil), s.skipped...),
		Running: s.running,
	}

	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}

	return snap
}

// Rows returns a copy of the current rows.
func (s *Session) Rows() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CloneRows(s.rows)
}

// begin marks the session busy and returns a working copy of its rows.
func (s *Session) begin() ([]*Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, ErrBusy
	}

	s.running = true

	return CloneRows(s.rows), nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// commit copies a processed row back into the session.
func (s *Session) commit(index int, row *Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < len(s.rows) {
		c := CloneRows([]*Row{row})[0]
		s.rows[index] = c
	}
}

// Geocode runs a pass over the pending rows. Every processed row is visible
// to readers as soon as it is done; onProgress may be nil.
func (s *Session) Geocode(ctx context.Context, onProgress func(Progress)) (Summary, error) {
	work, err := s.begin()
	if err != nil {
		return Summary{}, err
	}
	defer s.end()

	runner := s.runner
	runner.OnProgress = func(p Progress) {
		s.commit(p.Index, p.Row)

		if onProgress != nil {
			onProgress(p)
		}
	}

	summary, err := runner.Run(ctx, work)

	s.mu.Lock()
	s.summary = &summary
	s.mu.Unlock()

	return summary, err
}

// RetryRow applies edit to the row at index, resets it to pending and
// geocodes it again.
func (s *Session) RetryRow(ctx context.Context, index int, edit *RowEdit) (*Row, error) {
	work, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	if index < 0 || index >= len(work) {
		return nil, fmt.Errorf("%w: %d", ErrRowIndex, index)
	}

	row := work[index]
	if edit != nil {
		edit.apply(row)
	}

	row.reset()

	runner := s.runner
	runner.Delay = 0
	runner.OnProgress = nil

	if _, err := runner.Run(ctx, []*Row{row}); err != nil {
		return nil, err
	}

	s.commit(index, row)

	return CloneRows([]*Row{row})[0], nil
}

// Submit persists the geocoded rows for businessID. On success the session
// is emptied; on failure, or when no row is geocoded, the rows stay so the
// caller can fix and retry them.
func (s *Session) Submit(ctx context.Context, businessID string) (int, error) {
	work, err := s.begin()
	if err != nil {
		return 0, err
	}
	defer s.end()

	n, err := s.submitter.Submit(ctx, businessID, work)
	if err != nil {
		return 0, err
	}

	if n == 0 {
		return 0, ErrNothingToSubmit
	}

	s.Reset()

	return n, nil
}

// Reset discards every row.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows, s.skipped, s.summary = nil, nil, nil
}

// SessionStore keeps the open import sessions in memory. Sessions not used
// for longer than the idle timeout are dropped by Sweep.
type SessionStore struct {
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

type storedSession struct {
	session  *Session
	lastUsed time.Time
}

// NewSessionStore creates a store dropping sessions idle for longer than idle.
func NewSessionStore(idle time.Duration) *SessionStore {
	return &SessionStore{
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*storedSession),
	}
}

// Add registers a session.
func (st *SessionStore) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[s.ID] = &storedSession{session: s, lastUsed: st.now()}
}

// Get returns the session with id and marks it used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}

	e.lastUsed = st.now()

	return e.session, true
}

// Delete forgets the session with id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
}

// Len returns the number of open sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep drops idle sessions that are not geocoding and returns how many went.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.idle)
	n := 0

	for id, e := range st.sessions {
		if e.lastUsed.After(cutoff) {
			continue
		}

		e.session.mu.Lock()
		busy := e.session.running
		e.session.mu.Unlock()

		if !busy {
			delete(st.sessions, id)
			n++
		}
	}

	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Sweep(); n > 0 {
				log.Printf("%d idle imports dropped, %d still open", n, st.Len())
			}
		}
	}
}
