package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "kinfortune", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{
		UserID:   userID,
		Role:     enums.UserRoleAdmin,
		Birthday: "1990-01-15",
		JTI:      "jti-1",
	})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(token, "."))

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.UserRoleAdmin, claims.Role)
	require.Equal(t, "1990-01-15", claims.Birthday)
	require.Equal(t, "jti-1", claims.ID)
	require.Equal(t, userID.String(), claims.Subject)
}

func TestMintRejectsInvalidPayloads(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleUser})
	require.Error(t, err, "missing user id")

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "ROOT"})
	require.Error(t, err, "invalid role")

	_, err = MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	require.Error(t, err, "missing secret")
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	cfg := testJWTConfig()
	past := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, past, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessTokenAllowExpired(other, token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	foreign, err := MintAccessToken(other, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	require.NoError(t, err)
	_, err = ParseAccessTokenAllowExpired(cfg, foreign)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	wrongSecret := cfg
	wrongSecret.Secret = "nope"
	_, err = ParseAccessTokenAllowExpired(wrongSecret, token)
	require.Error(t, err)
}
