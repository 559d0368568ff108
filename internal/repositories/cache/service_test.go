package cache

import (
	"encoding/json"
	"testing"

	"spotus/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedUserKeepsAuthFields(t *testing.T) {
	user := models.User{
		Email:            "ada@example.com",
		Password:         "$2a$10$hash",
		Role:             models.RoleUser,
		AllocatedCredits: decimal.RequireFromString("12.50"),
		TokenVersion:     4,
	}
	user.ID = 9

	plain, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "token_version", "API responses hide the token version")

	data, err := json.Marshal(cachedUser{User: user, Password: user.Password, TokenVersion: user.TokenVersion})
	require.NoError(t, err)

	var cached cachedUser
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.Equal(t, uint(9), cached.User.ID)
	assert.Equal(t, "$2a$10$hash", cached.Password)
	assert.Equal(t, 4, cached.TokenVersion)
	assert.True(t, cached.User.AllocatedCredits.Equal(user.AllocatedCredits))
}

func TestGenerateKey(t *testing.T) {
	s := NewCacheService(nil, 0)
	assert.Equal(t, "user:id:9", s.GenerateKey("user", "id", uint(9)))
	assert.Equal(t, "lock:key:checkout:9", s.GenerateKey("lock", "key", "checkout:9"))
}
