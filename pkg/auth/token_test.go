package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herovault-backend/pkg/config"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "herovault", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	accountID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{AccountID: accountID, Role: enums.AccountRoleAdmin})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, accountID, claims.AccountID)
	require.Equal(t, enums.AccountRoleAdmin, claims.Role)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.Equal(t, accountID.String(), claims.Subject)
	require.NotEmpty(t, claims.ID)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now()
	valid := AccessTokenPayload{AccountID: uuid.New(), Role: enums.AccountRoleUser}

	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"missing secret":  {config.JWTConfig{Issuer: "hv", ExpirationMinutes: 1}, valid},
		"missing issuer":  {config.JWTConfig{Secret: "s", ExpirationMinutes: 1}, valid},
		"zero expiration": {config.JWTConfig{Secret: "s", Issuer: "hv"}, valid},
		"missing account": {testJWTConfig(), AccessTokenPayload{Role: enums.AccountRoleUser}},
		"unknown role":    {testJWTConfig(), AccessTokenPayload{AccountID: uuid.New(), Role: "owner"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, now, tc.payload)
			require.Error(t, err)
		})
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	payload := AccessTokenPayload{AccountID: uuid.New(), Role: enums.AccountRoleUser}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := MintAccessToken(cfg, now, payload)
		require.NoError(t, err)
		other := cfg
		other.Secret = "other"
		_, err = ParseAccessToken(other, token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := MintAccessToken(cfg, now, payload)
		require.NoError(t, err)
		other := cfg
		other.Issuer = "someone-else"
		_, err = ParseAccessToken(other, token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := MintAccessToken(cfg, now.Add(-2*time.Hour), payload)
		require.NoError(t, err)
		_, err = ParseAccessToken(cfg, token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign signing method", func(t *testing.T) {
		claims := AccessTokenClaims{
			AccountID:        payload.AccountID,
			Role:             payload.Role,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)
		_, err = ParseAccessToken(cfg, token)
		require.Error(t, err)
	})

	t.Run("missing account id", func(t *testing.T) {
		claims := AccessTokenClaims{
			Role:             enums.AccountRoleUser,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
		}
		token, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)
		_, err = ParseAccessToken(cfg, token)
		require.Error(t, err)
	})
}
