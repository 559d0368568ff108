// Package auth issues and revokes the JWTs that guard the checkout API.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/utils"
	"spotus/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidOldPassword = errors.New("invalid old password")
	ErrInactiveUser       = errors.New("user is not active")
)

// WeakPasswordError lists the rules a new password broke.
type WeakPasswordError struct {
	Fields []validation.FieldError
}

func (e *WeakPasswordError) Error() string {
	return "password does not meet requirements"
}

type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	// Authenticate validates an access token against the user's current
	// token version.
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	secrets  utils.TokenSecrets
}

func NewService(userRepo repositories.UserRepository, secrets utils.TokenSecrets) Service {
	if userRepo == nil {
		panic("user repository is required")
	}
	return &service{
		userRepo: userRepo,
		secrets:  secrets,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			slog.InfoContext(ctx, "Login failed: unknown email")
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		slog.InfoContext(ctx, "Login failed: incorrect password", slog.Uint64("user_id", uint64(user.ID)))
		return nil, "", "", ErrInvalidCredentials
	}
	if user.Status != "" && user.Status != models.UserStatusActive {
		return nil, "", "", ErrInactiveUser
	}

	access, refresh, err := s.issue(user)
	if err != nil {
		slog.ErrorContext(ctx, "Error generating tokens", slog.Any("err", err))
		return nil, "", "", err
	}
	return user, access, refresh, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken, s.secrets.Refresh)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	user, err := s.current(ctx, claims)
	if err != nil {
		return "", "", err
	}
	return s.issue(user)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	_, claims, err := utils.ParseToken(accessToken, s.secrets.Access)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := s.current(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *service) Logout(ctx context.Context, userID uint) error {
	return s.userRepo.IncrementTokenVersion(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	v := validation.New()
	v.Password("new_password", newPassword)
	if !v.Valid() {
		return &WeakPasswordError{Fields: v.Errors}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return err
	}
	// Existing sessions end with the old password.
	return s.userRepo.IncrementTokenVersion(ctx, userID)
}

// current loads the token's user and rejects revoked tokens.
func (s *service) current(ctx context.Context, claims *models.UserClaims) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return user, nil
}

func (s *service) issue(user *models.User) (string, string, error) {
	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	}, s.secrets)
}
