// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jcodagnone/storelocator/store"
)

// ErrSessionStarted is returned when Start is called twice.
var ErrSessionStarted = errors.New("session already started")

// Session is the auth state of one scope: the signed-in user and the business
// it acts for. It is fed by a single subscription to a Provider.
type Session struct {
	provider *Provider
	resolver *Resolver

	// OnChange, if set, is called after every handled event.
	OnChange func(Event)

	mu       sync.RWMutex
	user     *User
	business *store.Business
	err      error

	started     bool
	unsubscribe func()
	done        chan struct{}
}

// NewSession creates a session. resolver may be nil when no business lookup
// is needed.
func NewSession(provider *Provider, resolver *Resolver) *Session {
	return &Session{provider: provider, resolver: resolver}
}

// Start subscribes to the provider and handles events until Close or until
// ctx is done.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSessionStarted
	}

	events, unsubscribe := s.provider.Subscribe()
	s.started = true
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})

	go s.consume(ctx, events, unsubscribe)

	return nil
}

func (s *Session) consume(ctx context.Context, events <-chan Event, unsubscribe func()) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			unsubscribe()

			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			s.handle(ctx, ev)

			if s.OnChange != nil {
				s.OnChange(ev)
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case SignedIn, TokenRefreshed:
		u := ev.User

		var (
			b   *store.Business
			err error
		)

		if s.resolver != nil {
			b, err = s.resolver.Resolve(ctx, u)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Printf("⚠️ resolving business for %s: %v", u.Email, err)
			}
		}

		s.mu.Lock()
		s.user, s.business, s.err = &u, b, err
		s.mu.Unlock()
	case SignedOut:
		s.mu.Lock()
		s.user, s.business, s.err = nil, nil, nil
		s.mu.Unlock()
	}
}

// Close unsubscribes and waits for the pending events to be handled.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe, done := s.unsubscribe, s.done
	s.mu.Unlock()

	if unsubscribe == nil {
		return
	}

	unsubscribe()
	<-done
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}

	u := *s.user

	return &u
}

// Business returns the business of the signed-in user, or nil.
func (s *Session) Business() *store.Business {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.business == nil {
		return nil
	}

	b := *s.business

	return &b
}

// Err returns the error of the last business lookup.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}
