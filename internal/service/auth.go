// Package service holds the business rules. Handlers call services; services
// call repositories and the auth package. Nothing here knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// MaxUsernameLength is the longest username accepted at registration.
const MaxUsernameLength = 50

// errBadCredentials is shared by "no such user" and "wrong password" so the
// two are indistinguishable to the caller.
var errBadCredentials = apperror.Unauthorized("Invalid username or password")

// AuthService registers users, logs them in, and checks or revokes their
// tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	denylist  auth.Denylist
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	denylist auth.Denylist,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		denylist:  denylist,
		logger:    logger,
	}
}

var _ auth.Verifier = (*AuthService)(nil)

// Register creates an account. The username is stored exactly as given and
// compared case-sensitively; only a bcrypt hash of the password is kept.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if err := validateCredentials(username, password); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return "", errBadCredentials
		}
		return "", fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login failed", slog.String("user_id", user.ID))
			return "", errBadCredentials
		}
		return "", fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return token, nil
}

// Verify validates token and rejects it if it has been revoked by Logout.
// A rejected token comes back as apperror.ErrUnauthorized. A denylist
// lookup failure is returned wrapped so callers can tell the two apart.
func (s *AuthService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking denylist: %w", err)
	}
	if revoked {
		return nil, apperror.Unauthorized("token has been revoked")
	}
	return claims, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return apperror.Unauthorized("no token to revoke")
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Valid token for an account that no longer exists.
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	return nil
}
