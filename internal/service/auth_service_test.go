package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alanyoungcy/portfoliod/internal/crypto"
	"github.com/alanyoungcy/portfoliod/internal/domain"
	storemem "github.com/alanyoungcy/portfoliod/internal/store/memory"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	db := storemem.New()
	tokens, err := crypto.NewTokenIssuer("test-secret-0123456789", "portfoliod", 30*time.Minute)
	require.NoError(t, err)
	return NewAuthService(storemem.NewUserStore(db), tokens, storemem.NewAuditStore(db), bcrypt.MinCost, discardLogger())
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newAuth(t)
	tests := []struct {
		name, email, username, password string
	}{
		{"bad email", "nope", "alice", "longenough"},
		{"no username", "a@example.com", " ", "longenough"},
		{"short password", "a@example.com", "alice", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.username, tt.password)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAuthService_Flow(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(t)

	u, err := svc.Register(ctx, "alice@example.com", "alice", "password123")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password123", u.PasswordHash)

	_, err = svc.Register(ctx, "ALICE@example.com", "alice2", "password123")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = svc.Register(ctx, "other@example.com", "alice", "password123")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	tok, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)

	id, err := svc.Identify(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	me, err := svc.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Identify(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

type failingUsers struct {
	domain.UserStore
	err error
}

func (f failingUsers) GetByID(context.Context, int64) (domain.User, error) {
	return domain.User{}, f.err
}

func TestAuthService_IdentifyStoreOutage(t *testing.T) {
	ctx := context.Background()
	db := storemem.New()
	tokens, err := crypto.NewTokenIssuer("test-secret-0123456789", "portfoliod", 30*time.Minute)
	require.NoError(t, err)

	outage := errors.New("connection reset by peer")
	users := failingUsers{UserStore: storemem.NewUserStore(db), err: outage}
	svc := NewAuthService(users, tokens, storemem.NewAuditStore(db), bcrypt.MinCost, discardLogger())

	tok, _, err := tokens.Issue(1)
	require.NoError(t, err)

	_, err = svc.Identify(ctx, tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)

	users.err = domain.ErrNotFound
	svc = NewAuthService(users, tokens, storemem.NewAuditStore(db), bcrypt.MinCost, discardLogger())
	_, err = svc.Identify(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
