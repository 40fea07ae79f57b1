package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexbid/internal/domain"
)

var seller = &domain.User{ID: "u-1", Email: "s@nexbid.com", Role: domain.RoleSeller}

func TestIssueAndParse(t *testing.T) {
	j := NewJWTer("secret", "nexbid", time.Hour)
	tok, issued, err := j.Issue(seller)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UID)
	assert.Equal(t, domain.RoleSeller, c.Role)
	assert.Equal(t, issued.ID, c.ID)
	assert.Equal(t, domain.Actor{ID: "u-1", Email: "s@nexbid.com", Role: domain.RoleSeller}, c.Actor())
}

func TestParseRejects(t *testing.T) {
	j := NewJWTer("secret", "nexbid", time.Hour)
	tok, _, err := j.Issue(seller)
	require.NoError(t, err)

	_, err = NewJWTer("other", "nexbid", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTer("secret", "someone-else", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = j.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u-1", "role": "BUYER", "iss": "nexbid"})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = j.Parse(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	j := NewJWTer("secret", "nexbid", time.Minute)
	j.now = func() time.Time { return past }
	tok, _, err := j.Issue(seller)
	require.NoError(t, err)

	j.now = nil
	_, err = j.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()
	now := time.Now()
	d.now = func() time.Time { return now }

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Minute)))
	ok, err := d.Revoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Revoked(ctx, "b")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = d.Revoked(ctx, "a")
	assert.False(t, ok, "expired entries are forgotten")
	assert.Empty(t, d.entries)
}
