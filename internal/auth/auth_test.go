package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator("secret", "vtunedna", time.Hour)

	token, err := a.Issue(42)
	require.NoError(t, err)

	id, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)

	id, err = a.FromHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)

	id, err = a.FromHeader("bearer  " + token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)
}

func TestVerifyRejects(t *testing.T) {
	a := NewAuthenticator("secret", "vtunedna", time.Hour)
	good, err := a.Issue(1)
	require.NoError(t, err)

	other, _ := NewAuthenticator("other", "vtunedna", time.Hour).Issue(1)
	foreign, _ := NewAuthenticator("secret", "someone-else", time.Hour).Issue(1)

	expired := NewAuthenticator("secret", "vtunedna", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.Issue(1)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	zeroUser, _ := a.Issue(0)

	for name, tok := range map[string]string{
		"wrong secret": other,
		"wrong issuer": foreign,
		"expired":      stale,
		"alg none":     none,
		"zero user":    zeroUser,
		"garbage":      "not.a.jwt",
		"truncated":    good[:len(good)-4],
	} {
		_, err := a.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestFromHeader(t *testing.T) {
	a := NewAuthenticator("secret", "", 0)

	_, err := a.FromHeader("")
	assert.ErrorIs(t, err, ErrNoToken)

	for _, h := range []string{"Basic abc", "Bearer", "Bearer   ", "token"} {
		_, err := a.FromHeader(h)
		assert.ErrorIs(t, err, ErrInvalidToken, h)
	}
}

func TestNoSecret(t *testing.T) {
	a := NewAuthenticator("", "", 0)
	_, err := a.Issue(1)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = a.Verify("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	ctx = WithIdentity(ctx, &Identity{UserID: 7})
	require.NotNil(t, FromContext(ctx))
	assert.Equal(t, uint(7), FromContext(ctx).UserID)
}
