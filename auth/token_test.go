// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-at-least-16-bytes"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(User{ID: "u-1", Email: "mario@example.it"})
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u-1", Email: "mario@example.it"}, claims.User())
	assert.Equal(t, "u-1", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	other, err := NewTokenIssuer("another-secret-of-16-bytes", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue(User{ID: "u-1"})
	require.NoError(t, err)

	expiredIssuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	expired, err := expiredIssuer.Issue(User{ID: "u-1"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"other secret":   foreign,
		"expired":        expired,
		"none algorithm": none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenIssuerShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3greta!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3greta!", hash)

	assert.NoError(t, CheckPassword(hash, "s3greta!"))
	assert.ErrorIs(t, CheckPassword(hash, "sbagliata"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "s3greta!"), ErrInvalidCredentials)
}
