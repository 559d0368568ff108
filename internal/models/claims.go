package models

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Application permissions
const (
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	PermissionDonationRead  = "donation:read"
	PermissionPurchaseRead  = "purchase:read"
	PermissionPurchaseWrite = "purchase:write"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionDonationRead,
			PermissionPurchaseRead,
			PermissionPurchaseWrite,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleUser:
		return []string{
			PermissionDonationRead,
			PermissionPurchaseRead,
			PermissionPurchaseWrite,
		}
	default:
		return []string{}
	}
}
