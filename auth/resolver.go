// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jcodagnone/storelocator/store"
)

// ErrNotFound is returned by a LookupStrategy that found no business.
var ErrNotFound = errors.New("nessuna attività associata all'utente")

// BusinessStore is the part of store.Repository used to resolve businesses.
type BusinessStore interface {
	CreateBusiness(ctx context.Context, b *store.Business) error
	FindBusinessByUserID(ctx context.Context, userID string) (*store.Business, error)
	FindBusinessByEmail(ctx context.Context, email string) (*store.Business, error)
	LinkBusinessUser(ctx context.Context, businessID, userID string) error
}

// LookupStrategy finds the business of a user. It returns ErrNotFound when
// it has no match; any other error means the lookup itself failed.
type LookupStrategy interface {
	Name() string
	Lookup(ctx context.Context, u User) (*store.Business, error)
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}

	return err
}

// ByUserID finds the business already linked to the user.
type ByUserID struct{ Store BusinessStore }

func (ByUserID) Name() string { return "user_id" }

func (s ByUserID) Lookup(ctx context.Context, u User) (*store.Business, error) {
	if u.ID == "" {
		return nil, ErrNotFound
	}

	b, err := s.Store.FindBusinessByUserID(ctx, u.ID)

	return b, notFound(err)
}

// ByEmail finds a business registered with the user's email and links it to
// the user when it has no user yet.
type ByEmail struct{ Store BusinessStore }

func (ByEmail) Name() string { return "email" }

func (s ByEmail) Lookup(ctx context.Context, u User) (*store.Business, error) {
	if strings.TrimSpace(u.Email) == "" {
		return nil, ErrNotFound
	}

	b, err := s.Store.FindBusinessByEmail(ctx, u.Email)
	if err != nil {
		return nil, notFound(err)
	}

	if b.UserID == "" && u.ID != "" {
		if err := s.Store.LinkBusinessUser(ctx, b.ID, u.ID); err != nil {
			return nil, fmt.Errorf("linking business %s: %w", b.ID, err)
		}

		b.UserID = u.ID
	}

	return b, nil
}

// AutoLink creates a business for the user and links it.
type AutoLink struct{ Store BusinessStore }

func (AutoLink) Name() string { return "auto_link" }

func (s AutoLink) Lookup(ctx context.Context, u User) (*store.Business, error) {
	if u.ID == "" {
		return nil, ErrNotFound
	}

	name := u.Email
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}

	if name == "" {
		name = u.ID
	}

	b := &store.Business{Name: name, Email: u.Email, UserID: u.ID}
	if err := s.Store.CreateBusiness(ctx, b); err != nil {
		return nil, fmt.Errorf("creating business: %w", err)
	}

	return b, nil
}

// Resolver tries its strategies in order and stops at the first match or
// at the first failing lookup.
type Resolver struct {
	Strategies []LookupStrategy
}

// NewResolver returns the usual chain: by user id, by email, then auto-link.
func NewResolver(bs BusinessStore) *Resolver {
	return &Resolver{Strategies: []LookupStrategy{ByUserID{bs}, ByEmail{bs}, AutoLink{bs}}}
}

// Resolve returns the business of u, or ErrNotFound when no strategy matched.
func (r *Resolver) Resolve(ctx context.Context, u User) (*store.Business, error) {
	for _, s := range r.Strategies {
		b, err := s.Lookup(ctx, u)
		if err == nil {
			return b, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s lookup: %w", s.Name(), err)
		}
	}

	return nil, ErrNotFound
}
