// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"sync"
)

// EventKind says what changed.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event is an auth state change. User is empty for SignedOut.
type Event struct {
	Kind EventKind
	User User
}

const eventBuffer = 8

type subscription struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// Provider publishes auth changes to at most one subscriber. A new
// subscription replaces and closes the previous one.
type Provider struct {
	subscribeMu sync.Mutex

	// held for reading while sending, for writing while closing a channel
	mu  sync.RWMutex
	sub *subscription
}

// NewProvider returns a provider with no subscriber.
func NewProvider() *Provider {
	return &Provider{}
}

// Subscribe starts receiving events. The channel is closed by unsubscribe,
// which may be called more than once, or by the next Subscribe.
func (p *Provider) Subscribe() (<-chan Event, func()) {
	p.subscribeMu.Lock()
	defer p.subscribeMu.Unlock()

	p.mu.RLock()
	old := p.sub
	p.mu.RUnlock()

	if old != nil {
		p.cancel(old)
	}

	s := &subscription{ch: make(chan Event, eventBuffer), done: make(chan struct{})}

	p.mu.Lock()
	p.sub = s
	p.mu.Unlock()

	return s.ch, func() { p.cancel(s) }
}

func (p *Provider) cancel(s *subscription) {
	s.once.Do(func() {
		close(s.done)

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.sub == s {
			p.sub = nil
		}

		close(s.ch)
	})
}

// Subscribed reports whether someone is listening.
func (p *Provider) Subscribed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.sub != nil
}

// Publish delivers ev to the subscriber, waiting while its buffer is full.
// With no subscriber the event is dropped. It returns false when the event
// was not delivered.
func (p *Provider) Publish(ctx context.Context, ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.sub
	if s == nil {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}
