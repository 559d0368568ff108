package utils

import (
	"errors"

	"spotus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys the auth middleware fills in for authenticated requests.
const (
	claimsLocal = "claims"
	userIDLocal = "userID"
)

var (
	ErrNoClaims      = errors.New("request is not authenticated")
	ErrAnonymousUser = errors.New("claims do not name a user")
)

// SetUserClaims attaches authenticated claims to the request.
func SetUserClaims(c *fiber.Ctx, claims *models.UserClaims) {
	c.Locals(claimsLocal, claims)
	c.Locals(userIDLocal, claims.UserID)
}

// GetUserClaims returns the claims of the signed-in donor. Claims without a
// user id are refused, since every purchase belongs to an account.
func GetUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals(claimsLocal).(*models.UserClaims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	if claims.UserID == 0 {
		return nil, ErrAnonymousUser
	}
	return claims, nil
}
