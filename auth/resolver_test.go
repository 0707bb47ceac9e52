// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jcodagnone/storelocator/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRepo(t *testing.T) store.Repository {
	t.Helper()

	repo, err := store.Open(context.Background(), store.DriverDuckDB, "")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

// recordingStrategy answers with a fixed result and counts calls.
type recordingStrategy struct {
	name  string
	b     *store.Business
	err   error
	calls int
}

func (s *recordingStrategy) Name() string { return s.name }

func (s *recordingStrategy) Lookup(context.Context, User) (*store.Business, error) {
	s.calls++

	return s.b, s.err
}

func TestResolverShortCircuits(t *testing.T) {
	first := &recordingStrategy{name: "first", err: ErrNotFound}
	second := &recordingStrategy{name: "second", b: &store.Business{ID: "b-2"}}
	third := &recordingStrategy{name: "third", b: &store.Business{ID: "b-3"}}

	r := &Resolver{Strategies: []LookupStrategy{first, second, third}}

	b, err := r.Resolve(context.Background(), User{ID: "u"})
	require.NoError(t, err)
	assert.Equal(t, "b-2", b.ID)
	assert.Equal(t, []int{1, 1, 0}, []int{first.calls, second.calls, third.calls})
}

func TestResolverStopsOnTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	first := &recordingStrategy{name: "first", err: boom}
	second := &recordingStrategy{name: "second", b: &store.Business{ID: "b-2"}}

	r := &Resolver{Strategies: []LookupStrategy{first, second}}

	_, err := r.Resolve(context.Background(), User{ID: "u"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "first lookup")
	assert.Zero(t, second.calls)
}

func TestResolverNothingMatches(t *testing.T) {
	r := &Resolver{Strategies: []LookupStrategy{&recordingStrategy{name: "a", err: ErrNotFound}}}

	_, err := r.Resolve(context.Background(), User{ID: "u"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDefaultChain(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	r := NewResolver(repo)

	linked := &store.Business{Name: "Linked", UserID: "u-linked"}
	require.NoError(t, repo.CreateBusiness(ctx, linked))

	byEmail := &store.Business{Name: "By Email", Email: "shop@example.it"}
	require.NoError(t, repo.CreateBusiness(ctx, byEmail))

	t.Run("by user id", func(t *testing.T) {
		b, err := r.Resolve(ctx, User{ID: "u-linked", Email: "shop@example.it"})
		require.NoError(t, err)
		assert.Equal(t, linked.ID, b.ID)
	})

	t.Run("by email links the user", func(t *testing.T) {
		b, err := r.Resolve(ctx, User{ID: "u-new", Email: "SHOP@example.it"})
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, b.ID)
		assert.Equal(t, "u-new", b.UserID)

		again, err := repo.FindBusinessByUserID(ctx, "u-new")
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, again.ID)
	})

	t.Run("auto link", func(t *testing.T) {
		b, err := r.Resolve(ctx, User{ID: "u-fresh", Email: "mario.rossi@example.it"})
		require.NoError(t, err)
		assert.Equal(t, "mario.rossi", b.Name)
		assert.Equal(t, "u-fresh", b.UserID)

		again, err := r.Resolve(ctx, User{ID: "u-fresh", Email: "mario.rossi@example.it"})
		require.NoError(t, err)
		assert.Equal(t, b.ID, again.ID, "second resolve finds the linked business")
	})
}

func TestSessionFollowsEvents(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	biz := &store.Business{Name: "Conad", Email: "conad@example.it"}
	require.NoError(t, repo.CreateBusiness(ctx, biz))

	p := NewProvider()
	s := NewSession(p, NewResolver(repo))

	changes := make(chan Event, 4)
	s.OnChange = func(ev Event) { changes <- ev }

	require.NoError(t, s.Start(ctx))
	defer s.Close()

	assert.ErrorIs(t, s.Start(ctx), ErrSessionStarted)
	assert.Nil(t, s.User())

	require.True(t, p.Publish(ctx, Event{Kind: SignedIn, User: User{ID: "u-1", Email: "conad@example.it"}}))
	waitFor(t, changes, SignedIn)

	require.NotNil(t, s.User())
	assert.Equal(t, "u-1", s.User().ID)
	require.NotNil(t, s.Business())
	assert.Equal(t, biz.ID, s.Business().ID)
	assert.NoError(t, s.Err())

	require.True(t, p.Publish(ctx, Event{Kind: SignedOut}))
	waitFor(t, changes, SignedOut)

	assert.Nil(t, s.User())
	assert.Nil(t, s.Business())
}

func TestSessionCloseUnsubscribes(t *testing.T) {
	p := NewProvider()
	s := NewSession(p, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, p.Subscribed())

	s.Close()
	s.Close()
	assert.False(t, p.Subscribed())
}

func TestSessionStopsWithContext(t *testing.T) {
	p := NewProvider()
	s := NewSession(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()

	require.Eventually(t, func() bool { return !p.Subscribed() }, time.Second, 5*time.Millisecond)
	s.Close()
}

func waitFor(t *testing.T, ch <-chan Event, kind EventKind) {
	t.Helper()

	select {
	case ev := <-ch:
		require.Equal(t, kind, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", kind)
	}
}
