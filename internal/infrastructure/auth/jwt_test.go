package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtService(mutate ...func(*config.JWTConfig)) *JWTService {
	cfg := config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "procureflow",
		MaxRefreshCount:        10,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewJWTService(cfg)
}

// sharedSecrets makes access and refresh tokens verifiable with the same
// key, so a token of the wrong type passes signature checks and exercises
// the token type guard instead.
func sharedSecrets(cfg *config.JWTConfig) {
	cfg.RefreshSecret = cfg.Secret
}

func clerkInput() GenerateTokenInput {
	return GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "ap.clerk",
		RoleIDs:     []uuid.UUID{uuid.New(), uuid.New()},
		Permissions: []string{"procurement:read", "procurement:manage", "ledger:read"},
	}
}

func TestNewJWTService(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:                 "test-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "procureflow",
		MaxRefreshCount:        5,
	}

	svc := NewJWTService(cfg)

	require.NotNil(t, svc)
	assert.Equal(t, []byte(cfg.Secret), svc.accessSecret)
	assert.Equal(t, cfg.AccessTokenExpiration, svc.accessExpiration)
	assert.Equal(t, cfg.RefreshTokenExpiration, svc.refreshExpiration)
	assert.Equal(t, cfg.Issuer, svc.issuer)
	assert.Equal(t, cfg.MaxRefreshCount, svc.maxRefreshCount)

	// An empty refresh secret falls back to the access secret.
	assert.Equal(t, []byte(cfg.Secret), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	pair, err := jwtService().GenerateTokenPair(clerkInput())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.AccessTokenExpiresAt.After(time.Now()))
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestValidateAccessToken(t *testing.T) {
	svc := jwtService()
	input := clerkInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.TenantID.String(), claims.TenantID)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "ap.clerk", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Len(t, claims.RoleIDs, len(input.RoleIDs))
	assert.Equal(t, input.Permissions, claims.Permissions)
}

func TestValidateAccessTokenRejections(t *testing.T) {
	t.Run("garbage token", func(t *testing.T) {
		_, err := jwtService().ValidateAccessToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		svc := jwtService(func(cfg *config.JWTConfig) {
			cfg.AccessTokenExpiration = -time.Hour
		})
		pair, err := svc.GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("refresh token presented as access", func(t *testing.T) {
		svc := jwtService(sharedSecrets)
		pair, err := svc.GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("token signed with different secret", func(t *testing.T) {
		pair, err := jwtService().GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		other := jwtService(func(cfg *config.JWTConfig) {
			cfg.Secret = "different-secret-key-32-chars!"
		})
		_, err = other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateRefreshToken(t *testing.T) {
	svc := jwtService()
	input := clerkInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, input.TenantID.String(), claims.TenantID)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, 0, claims.RefreshCount)

	t.Run("access token presented as refresh", func(t *testing.T) {
		svc := jwtService(sharedSecrets)
		pair, err := svc.GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		_, err = svc.ValidateRefreshToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})
}

func TestRefreshTokenPair(t *testing.T) {
	svc := jwtService()

	pair, err := svc.GenerateTokenPair(clerkInput())
	require.NoError(t, err)

	// Permissions are re-read at refresh time; a revoked grant must not
	// survive into the new access token.
	rotated, err := svc.RefreshTokenPair(pair.RefreshToken, []string{"procurement:read"})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := svc.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"procurement:read"}, claims.Permissions)
}

func TestRefreshTokenPairCountsRefreshes(t *testing.T) {
	svc := jwtService()

	pair, err := svc.GenerateTokenPair(clerkInput())
	require.NoError(t, err)

	for want := 1; want <= 2; want++ {
		pair, err = svc.RefreshTokenPair(pair.RefreshToken, nil)
		require.NoError(t, err)

		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, want, claims.RefreshCount)
	}
}

func TestRefreshTokenPairRejections(t *testing.T) {
	t.Run("refresh budget exhausted", func(t *testing.T) {
		svc := jwtService(func(cfg *config.JWTConfig) {
			cfg.MaxRefreshCount = 2
		})
		pair, err := svc.GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			pair, err = svc.RefreshTokenPair(pair.RefreshToken, nil)
			require.NoError(t, err)
		}

		_, err = svc.RefreshTokenPair(pair.RefreshToken, nil)
		assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := jwtService().RefreshTokenPair("not-a-jwt", nil)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("access token presented for refresh", func(t *testing.T) {
		svc := jwtService(sharedSecrets)
		pair, err := svc.GenerateTokenPair(clerkInput())
		require.NoError(t, err)

		_, err = svc.RefreshTokenPair(pair.AccessToken, nil)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})
}

func TestClaimsUUIDAccessors(t *testing.T) {
	svc := jwtService()
	input := clerkInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	tenantUUID, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, input.TenantID, tenantUUID)

	userUUID, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, userUUID)

	roleUUIDs, err := claims.GetRoleUUIDs()
	require.NoError(t, err)
	assert.Equal(t, input.RoleIDs, roleUUIDs)
}

func TestClaimsPermissionChecks(t *testing.T) {
	claims := &Claims{
		Permissions: []string{"procurement:read", "procurement:manage", "ledger:read"},
	}

	assert.True(t, claims.HasPermission("procurement:manage"))
	assert.False(t, claims.HasPermission("payment:release"))

	assert.True(t, claims.HasAnyPermission("payment:release", "procurement:read"))
	assert.False(t, claims.HasAnyPermission("payment:release", "ledger:manage"))

	assert.True(t, claims.HasAllPermissions("procurement:read", "ledger:read"))
	assert.False(t, claims.HasAllPermissions("procurement:read", "payment:release"))
}
