package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "battery staple"), ErrPasswordMismatch)

	_, err = HashPassword("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestTokenIssuer(t *testing.T) {
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("0123456789abcdef0123", "portfoliod", 30*time.Minute)
	require.NoError(t, err)
	issuer.now = func() time.Time { return clock }

	tok, exp, err := issuer.Issue(42)
	require.NoError(t, err)
	assert.Equal(t, clock.Add(30*time.Minute), exp)

	id, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	t.Run("expired", func(t *testing.T) {
		clock = clock.Add(31 * time.Minute)
		defer func() { clock = clock.Add(-31 * time.Minute) }()
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other, err := NewTokenIssuer("another-secret-value!", "portfoliod", time.Minute)
		require.NoError(t, err)
		other.now = issuer.now
		forged, _, err := other.Issue(42)
		require.NoError(t, err)
		_, err = issuer.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", "", 0)
	assert.Error(t, err)
}
