package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/core/port"
	"github.com/foroescolar/escuela-api/internal/infra/logger"
	"github.com/foroescolar/escuela-api/internal/infra/security"
	"github.com/foroescolar/escuela-api/internal/repository"
)

var (
	// ErrInvalidCredentials hides whether the account exists or the
	// password mismatched.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount rejects disabled accounts with valid credentials.
	ErrInactiveAccount = errors.New("inactive account")
)

// AuthService handles credential login and logout on top of the token service.
type AuthService struct {
	users  port.UserRepository
	tokens *TokenService
	logger *zap.Logger
}

// NewAuthService constructs the authentication service.
func NewAuthService(users port.UserRepository, tokens *TokenService, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, logger: log}
}

// Login verifies credentials and issues a bearer token for the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load account: %w", err)
	}

	if !user.Active {
		s.logger.Warn("login attempt on inactive account", zap.String("email", logger.MaskEmail(email)))
		return "", nil, ErrInactiveAccount
	}

	match, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		s.logger.Info("failed login", zap.String("email", logger.MaskEmail(email)))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role.String()),
	)
	return token, user, nil
}

// Logout revokes the presented token. Revoking an already revoked token is a
// no-op, so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	return s.tokens.Invalidate(ctx, rawToken)
}
