package handlers

import (
	"errors"
	"log/slog"
	"time"

	"spotus/internal/models"
	"spotus/internal/services/auth"
	"spotus/internal/utils"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// CookieConfig scopes the auth cookies.
type CookieConfig struct {
	Domain string
	Secure bool
}

type AuthHandler struct {
	authService auth.Service
	cookies     CookieConfig
}

func NewAuthHandler(authService auth.Service, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// LoginUser handles user authentication and returns JWT tokens
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	user, accessToken, refreshToken, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return response.Error(c, fiber.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrInactiveUser):
			return response.Forbidden(c)
		}
		slog.ErrorContext(c.UserContext(), "Login failed", slog.Any("err", err))
		return response.ServerError(c, "Authentication failed")
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":                user.ID,
			"email":             user.Email,
			"role":              user.Role,
			"allocated_credits": user.AllocatedCredits,
			"permissions":       models.GetDefaultPermissions(user.Role),
		},
	})
}

// RefreshToken handles token refresh requests
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err != nil {
			return response.Error(c, fiber.StatusUnauthorized, "Refresh token not provided")
		}
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return response.Error(c, fiber.StatusUnauthorized, "Refresh token not provided")
	}

	accessToken, newRefreshToken, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		slog.InfoContext(c.UserContext(), "Token refresh failed", slog.Any("err", err))
		return response.Error(c, fiber.StatusUnauthorized, "Invalid refresh token")
	}

	h.setAuthCookies(c, accessToken, newRefreshToken)

	return response.Success(c, "Token refreshed", fiber.Map{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
	})
}

// LogoutUser bumps the token version, which revokes every issued token.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.authService.Logout(c.UserContext(), claims.UserID); err != nil {
		slog.ErrorContext(c.UserContext(), "Logout failed", slog.Uint64("user_id", uint64(claims.UserID)), slog.Any("err", err))
		return response.ServerError(c, "Failed to logout")
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Successfully logged out", nil)
}

// ChangePassword handles password change requests
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	err = h.authService.ChangePassword(c.UserContext(), claims.UserID, input.OldPassword, input.NewPassword)
	if err != nil {
		var weak *auth.WeakPasswordError
		switch {
		case errors.As(err, &weak):
			return response.ValidationFailed(c, weak.Error(), weak.Fields)
		case errors.Is(err, auth.ErrInvalidOldPassword):
			return response.BadRequest(c, err.Error())
		}
		slog.ErrorContext(c.UserContext(), "Password change failed", slog.Uint64("user_id", uint64(claims.UserID)), slog.Any("err", err))
		return response.ServerError(c, "Failed to change password")
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Password changed successfully", nil)
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(h.cookie("access_token", accessToken, int(utils.AccessTokenTTL.Seconds())))
	c.Cookie(h.cookie("refresh_token", refreshToken, int(utils.RefreshTokenTTL.Seconds())))
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := h.cookie(name, "", 0)
		cookie.Expires = time.Now().Add(-time.Hour)
		c.Cookie(cookie)
	}
}

func (h *AuthHandler) cookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Domain:   h.cookies.Domain,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		Path:     "/",
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   maxAge,
	}
}
