package utils

import (
	"errors"
	"strconv"
	"time"

	"spotus/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer     = "spotus-api"
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var ErrSecretNotConfigured = errors.New("jwt secret not configured")

// TokenSecrets signs access and refresh tokens with separate keys so a
// refresh token is never accepted as an access token.
type TokenSecrets struct {
	Access  string
	Refresh string
}

// GenerateTokens issues an access token and a refresh token for the given user claims.
func GenerateTokens(claims *models.UserClaims, secrets TokenSecrets) (accessToken string, refreshToken string, err error) {
	if secrets.Access == "" || secrets.Refresh == "" {
		return "", "", ErrSecretNotConfigured
	}

	now := time.Now()

	accessClaims := models.UserClaims{
		RegisteredClaims: registered(claims.UserID, now, AccessTokenTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		Permissions:      claims.Permissions,
		TokenVersion:     claims.TokenVersion,
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(secrets.Access))
	if err != nil {
		return "", "", err
	}

	// Refresh tokens carry no permissions; they are re-derived on refresh.
	refreshClaims := models.UserClaims{
		RegisteredClaims: registered(claims.UserID, now, RefreshTokenTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		TokenVersion:     claims.TokenVersion,
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(secrets.Refresh))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ParseToken parses and validates a JWT token string signed with secret.
func ParseToken(tokenStr, secret string) (*jwt.Token, *models.UserClaims, error) {
	if secret == "" {
		return nil, nil, ErrSecretNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	return token, claims, nil
}

func registered(userID uint, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
	}
}
