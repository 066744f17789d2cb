package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/infrastructure/auth"
	"github.com/procureflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "procureflow",
		MaxRefreshCount:        10,
	})
}

func newTestTokenPair(jwtService *auth.JWTService) (*auth.TokenPair, auth.GenerateTokenInput) {
	input := auth.GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "ap.clerk",
		RoleIDs:     []uuid.UUID{uuid.New()},
		Permissions: []string{"procurement:read", "procurement:manage"},
	}
	pair, _ := jwtService.GenerateTokenPair(input)
	return pair, input
}

// authedRequest serves GET /receipts through the given middleware with an
// optional bearer token.
func authedRequest(mw gin.HandlerFunc, token string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(mw)
	if handler == nil {
		handler = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) }
	}
	r.GET("/receipts", handler)

	req := httptest.NewRequest(http.MethodGet, "/receipts", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddlewareValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	pair, input := newTestTokenPair(jwtService)

	rec := authedRequest(JWTAuthMiddleware(jwtService), "Bearer "+pair.AccessToken, func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, input.UserID.String(), claims.UserID)
		assert.Equal(t, input.TenantID.String(), claims.TenantID)
		c.JSON(http.StatusOK, gin.H{})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMiddlewareRejections(t *testing.T) {
	jwtService := newTestJWTService()
	pair, _ := newTestTokenPair(jwtService)

	expiredService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Hour,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "procureflow",
	})
	expiredPair, _ := newTestTokenPair(expiredService)

	tests := []struct {
		name    string
		service *auth.JWTService
		header  string
	}{
		{"missing header", jwtService, ""},
		{"wrong scheme", jwtService, "Basic token123"},
		{"empty token", jwtService, "Bearer "},
		{"garbage token", jwtService, "Bearer invalid-token"},
		{"expired token", expiredService, "Bearer " + expiredPair.AccessToken},
		{"refresh token used as access", jwtService, "Bearer " + pair.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := authedRequest(JWTAuthMiddleware(tt.service), tt.header, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestJWTAuthMiddlewareSkipPaths(t *testing.T) {
	jwtService := newTestJWTService()

	t.Run("configured path and prefix", func(t *testing.T) {
		cfg := DefaultJWTConfig(jwtService)
		cfg.SkipPaths = append(cfg.SkipPaths, "/public")
		cfg.SkipPathPrefixes = append(cfg.SkipPathPrefixes, "/static")

		r := gin.New()
		r.Use(JWTAuthMiddlewareWithConfig(cfg))
		r.GET("/public", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
		r.GET("/static/assets/logo.png", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

		for _, path := range []string{"/public", "/static/assets/logo.png"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		r := gin.New()
		r.Use(JWTAuthMiddleware(jwtService))
		paths := []string{
			"/health", "/healthz", "/ready",
			"/api/v1/health", "/api/v1/auth/login", "/api/v1/auth/refresh",
		}
		for _, path := range paths {
			r.GET(path, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
		}
		for _, path := range paths {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}

func TestJWTAuthMiddlewarePopulatesContext(t *testing.T) {
	jwtService := newTestJWTService()
	pair, input := newTestTokenPair(jwtService)

	rec := authedRequest(JWTAuthMiddleware(jwtService), "Bearer "+pair.AccessToken, func(c *gin.Context) {
		assert.Equal(t, input.UserID.String(), GetJWTUserID(c))
		assert.Equal(t, input.TenantID.String(), GetJWTTenantID(c))
		assert.Equal(t, input.Username, GetJWTUsername(c))
		assert.Equal(t, input.Permissions, GetJWTPermissions(c))
		roleIDs := GetJWTRoleIDs(c)
		require.Len(t, roleIDs, 1)
		assert.Equal(t, input.RoleIDs[0].String(), roleIDs[0])
		c.JSON(http.StatusOK, gin.H{})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTContextAccessorsUnauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTTenantID(c))
	assert.Empty(t, GetJWTUsername(c))
	assert.Nil(t, GetJWTRoleIDs(c))
	assert.Nil(t, GetJWTPermissions(c))
	assert.Panics(t, func() { MustGetJWTClaims(c) })
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	jwtService := newTestJWTService()
	pair, input := newTestTokenPair(jwtService)

	tests := []struct {
		name       string
		header     string
		wantClaims bool
	}{
		{"no token passes anonymously", "", false},
		{"invalid token passes anonymously", "Bearer invalid-token", false},
		{"valid token attaches claims", "Bearer " + pair.AccessToken, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *auth.Claims
			rec := authedRequest(OptionalJWTAuthMiddleware(jwtService), tt.header, func(c *gin.Context) {
				claims = GetJWTClaims(c)
				c.JSON(http.StatusOK, gin.H{})
			})
			assert.Equal(t, http.StatusOK, rec.Code)
			if tt.wantClaims {
				require.NotNil(t, claims)
				assert.Equal(t, input.UserID.String(), claims.UserID)
			} else {
				assert.Nil(t, claims)
			}
		})
	}
}

func TestJWTAuthMiddlewareCustomOnError(t *testing.T) {
	jwtService := newTestJWTService()

	called := false
	cfg := DefaultJWTConfig(jwtService)
	cfg.OnError = func(c *gin.Context, err error) {
		called = true
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"custom": "error"})
	}

	rec := authedRequest(JWTAuthMiddlewareWithConfig(cfg), "", nil)
	assert.True(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
