package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/alanyoungcy/portfoliod/internal/crypto"
	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService registers users, exchanges credentials for tokens and
// identifies the caller behind a token.
type AuthService struct {
	users      domain.UserStore
	tokens     *crypto.TokenIssuer
	audit      domain.AuditStore
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates an AuthService. A bcryptCost of 0 selects the
// library default.
func NewAuthService(
	users domain.UserStore,
	tokens *crypto.TokenIssuer,
	audit domain.AuditStore,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an active user.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("auth_service: register: %w: invalid email", domain.ErrValidation)
	}
	if username == "" {
		return domain.User{}, fmt.Errorf("auth_service: register: %w: username is required", domain.ErrValidation)
	}
	if len(password) < crypto.MinPasswordLen {
		return domain.User{}, fmt.Errorf("auth_service: register: %w: password must be at least %d characters",
			domain.ErrValidation, crypto.MinPasswordLen)
	}

	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: register: %w", err)
	}

	u, err := s.users.Create(ctx, domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: register %s: %w", username, err)
	}

	if auditErr := s.audit.Log(ctx, "user_registered", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "auth_service: audit log failed", slog.String("error", auditErr.Error()))
	}
	return u, nil
}

// Login checks the credentials and issues a token. Unknown users, wrong
// passwords and inactive accounts are all domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Token{}, fmt.Errorf("auth_service: login: %w: bad credentials", domain.ErrUnauthorized)
		}
		return Token{}, fmt.Errorf("auth_service: login: %w", err)
	}
	if err := crypto.CheckPassword(u.PasswordHash, password); err != nil {
		return Token{}, fmt.Errorf("auth_service: login: %w: bad credentials", domain.ErrUnauthorized)
	}
	if !u.IsActive {
		return Token{}, fmt.Errorf("auth_service: login: %w: inactive user", domain.ErrUnauthorized)
	}

	tok, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Token{}, fmt.Errorf("auth_service: login: %w", err)
	}
	return Token{AccessToken: tok, TokenType: "bearer", ExpiresAt: exp}, nil
}

// Identify returns the id of the active user a token was issued to.
func (s *AuthService) Identify(ctx context.Context, credential string) (int64, error) {
	id, err := s.tokens.Verify(credential)
	if err != nil {
		return 0, fmt.Errorf("auth_service: identify: %w: %v", domain.ErrUnauthorized, err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("auth_service: identify: %w: unknown user", domain.ErrUnauthorized)
		}
		return 0, fmt.Errorf("auth_service: identify: %w", err)
	}
	if !u.IsActive {
		return 0, fmt.Errorf("auth_service: identify: %w: inactive user", domain.ErrUnauthorized)
	}
	return u.ID, nil
}

// Me returns the user record for id.
func (s *AuthService) Me(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: me: %w", err)
	}
	return u, nil
}
