package utils

import (
	"testing"

	"spotus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseTokens(t *testing.T) {
	secrets := TokenSecrets{Access: "access-secret", Refresh: "refresh-secret"}
	claims := &models.UserClaims{
		UserID:       7,
		Email:        "ada@example.com",
		Role:         models.RoleUser,
		Permissions:  models.GetDefaultPermissions(models.RoleUser),
		TokenVersion: 3,
	}

	access, refresh, err := GenerateTokens(claims, secrets)
	require.NoError(t, err)

	t.Run("access token round trips", func(t *testing.T) {
		_, parsed, err := ParseToken(access, secrets.Access)
		require.NoError(t, err)
		assert.Equal(t, uint(7), parsed.UserID)
		assert.Equal(t, 3, parsed.TokenVersion)
		assert.Equal(t, "7", parsed.Subject)
		assert.True(t, parsed.HasPermission(models.PermissionPurchaseWrite))
	})

	t.Run("refresh token has no permissions", func(t *testing.T) {
		_, parsed, err := ParseToken(refresh, secrets.Refresh)
		require.NoError(t, err)
		assert.Empty(t, parsed.Permissions)
	})

	t.Run("tokens are not interchangeable", func(t *testing.T) {
		_, _, err := ParseToken(refresh, secrets.Access)
		assert.Error(t, err)
		_, _, err = ParseToken(access, secrets.Refresh)
		assert.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, _, err := GenerateTokens(claims, TokenSecrets{Access: "x"})
		assert.ErrorIs(t, err, ErrSecretNotConfigured)
		_, _, err = ParseToken(access, "")
		assert.ErrorIs(t, err, ErrSecretNotConfigured)
	})
}
