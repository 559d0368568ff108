// Package middleware provides the fiber middleware that authenticates API
// callers and checks their permissions.
package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"spotus/internal/models"
	"spotus/internal/services/auth"
	"spotus/internal/utils"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware handles JWT token validation and user authentication.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Handler reads the bearer token, or the access_token cookie set at login,
// validates it and attaches the claims with utils.SetUserClaims.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	claims, err := m.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			return response.Error(c, fiber.StatusUnauthorized, "session expired")
		}
		if errors.Is(err, auth.ErrInvalidToken) {
			return response.Error(c, fiber.StatusUnauthorized, "invalid token")
		}
		slog.ErrorContext(c.UserContext(), "Token check failed", slog.Any("err", err))
		return response.ServerError(c, "failed to authenticate")
	}

	utils.SetUserClaims(c, claims)

	return c.Next()
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	if claims.Role != models.RoleAdmin {
		slog.Info("Admin access denied", slog.Uint64("user_id", uint64(claims.UserID)), slog.String("role", claims.Role))
		return response.Forbidden(c)
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetUserClaims(c)
		if err != nil {
			return response.Unauthorized(c)
		}

		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}

		return response.Forbidden(c)
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if cookie := c.Cookies("access_token"); cookie != "" {
			return cookie, true
		}
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
