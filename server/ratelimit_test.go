// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	rl.Allow("10.0.0.1")
	rl.Sweep(time.Hour)
	assert.Len(t, rl.clients, 1)

	rl.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.Sweep(time.Hour)
	assert.Empty(t, rl.clients)

	assert.True(t, rl.Allow("10.0.0.1"), "a swept client starts with a full bucket")
}
