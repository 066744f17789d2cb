package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// grantToken mints an access token carrying exactly the given permissions.
func grantToken(t *testing.T, svc *auth.JWTService, perms ...string) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "ap.clerk",
		RoleIDs:     []uuid.UUID{uuid.New()},
		Permissions: perms,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

// permServe runs one request through JWT auth plus the given guard and
// returns the recorder.
func permServe(svc *auth.JWTService, guard gin.HandlerFunc, method, path, token string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(JWTAuthMiddleware(svc))
	if handler == nil {
		handler = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) }
	}
	if guard == nil {
		r.Handle(method, path, handler)
	} else {
		r.Handle(method, path, guard, handler)
	}

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPermissionGuards(t *testing.T) {
	svc := newTestJWTService()

	cases := map[string]struct {
		guard   gin.HandlerFunc
		granted []string
		want    int
	}{
		"single permission held": {
			guard:   RequirePermission("procurement:read"),
			granted: []string{"procurement:read", "procurement:manage"},
			want:    http.StatusOK,
		},
		"single permission missing": {
			guard:   RequirePermission("payment:release"),
			granted: []string{"procurement:read"},
			want:    http.StatusForbidden,
		},
		"any with one match": {
			guard:   RequireAnyPermission("procurement:read", "procurement:manage"),
			granted: []string{"procurement:read"},
			want:    http.StatusOK,
		},
		"any with no match": {
			guard:   RequireAnyPermission("procurement:read", "procurement:manage"),
			granted: []string{"ledger:read"},
			want:    http.StatusForbidden,
		},
		"all held": {
			guard:   RequireAllPermissions("procurement:read", "procurement:manage"),
			granted: []string{"procurement:read", "procurement:manage", "procurement:update"},
			want:    http.StatusOK,
		},
		"all with one missing": {
			guard:   RequireAllPermissions("procurement:read", "procurement:manage"),
			granted: []string{"procurement:read"},
			want:    http.StatusForbidden,
		},
		"resource action": {
			guard:   RequireResourceAction("procurement", "confirm"),
			granted: []string{"procurement:confirm"},
			want:    http.StatusOK,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token := grantToken(t, svc, tc.granted...)
			rec := permServe(svc, tc.guard, http.MethodGet, "/receipts", token, nil)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequirePermissionWithoutClaims(t *testing.T) {
	// No JWT middleware in front, so the guard sees no claims at all.
	r := gin.New()
	r.GET("/receipts", RequirePermission("procurement:read"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireResourceDerivedActions(t *testing.T) {
	svc := newTestJWTService()
	guard := RequireResource("procurement")

	cases := []struct {
		method  string
		path    string
		granted string
		want    int
	}{
		{http.MethodGet, "/receipts", "procurement:read", http.StatusOK},
		{http.MethodPost, "/receipts", "procurement:create", http.StatusOK},
		{http.MethodPut, "/receipts/:id", "procurement:update", http.StatusOK},
		{http.MethodPatch, "/receipts/:id", "procurement:update", http.StatusOK},
		{http.MethodDelete, "/receipts/:id", "procurement:delete", http.StatusOK},
		{http.MethodDelete, "/receipts/:id", "procurement:read", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.granted, func(t *testing.T) {
			token := grantToken(t, svc, tc.granted)
			rec := permServe(svc, guard, tc.method, tc.path, token, nil)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRoutePermissionMiddleware(t *testing.T) {
	svc := newTestJWTService()

	cases := map[string]struct {
		cfg     RoutePermissionConfig
		granted []string
		method  string
		path    string
		want    int
	}{
		"exact path match": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "GET", Path: "/api/v1/receipts", Permissions: []string{"procurement:read"}},
			}},
			granted: []string{"procurement:read"},
			method:  http.MethodGet,
			path:    "/api/v1/receipts",
			want:    http.StatusOK,
		},
		"prefix match": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "GET", Path: "/api/v1/receipts*", Permissions: []string{"procurement:read"}},
			}},
			granted: []string{"procurement:read"},
			method:  http.MethodGet,
			path:    "/api/v1/receipts/GRN-2024-0042",
			want:    http.StatusOK,
		},
		"wildcard method": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "*", Path: "/api/v1/receipts", Permissions: []string{"procurement:manage"}},
			}},
			granted: []string{"procurement:manage"},
			method:  http.MethodPost,
			path:    "/api/v1/receipts",
			want:    http.StatusOK,
		},
		"require all held": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "GET", Path: "/api/v1/receipts", Permissions: []string{"procurement:read", "procurement:manage"}, RequireAll: true},
			}},
			granted: []string{"procurement:read", "procurement:manage"},
			method:  http.MethodGet,
			path:    "/api/v1/receipts",
			want:    http.StatusOK,
		},
		"require all missing one": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "GET", Path: "/api/v1/receipts", Permissions: []string{"procurement:read", "procurement:manage"}, RequireAll: true},
			}},
			granted: []string{"procurement:read"},
			method:  http.MethodGet,
			path:    "/api/v1/receipts",
			want:    http.StatusForbidden,
		},
		"unmatched route allowed by default": {
			cfg: RoutePermissionConfig{Routes: []RoutePermission{
				{Method: "GET", Path: "/api/v1/receipts", Permissions: []string{"procurement:read"}},
			}},
			method: http.MethodGet,
			path:   "/api/v1/other",
			want:   http.StatusOK,
		},
		"unmatched route denied when default deny": {
			cfg: RoutePermissionConfig{
				Routes: []RoutePermission{
					{Method: "GET", Path: "/api/v1/receipts", Permissions: []string{"procurement:read"}},
				},
				DefaultDeny: true,
			},
			method: http.MethodGet,
			path:   "/api/v1/other",
			want:   http.StatusForbidden,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.cfg.Logger = zaptest.NewLogger(t)
			token := grantToken(t, svc, tc.granted...)

			r := gin.New()
			r.Use(JWTAuthMiddleware(svc), RoutePermissionMiddleware(tc.cfg))
			r.Handle(tc.method, tc.path, func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{})
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPermissionQueryHelpers(t *testing.T) {
	svc := newTestJWTService()
	token := grantToken(t, svc, "procurement:read", "procurement:manage")

	rec := permServe(svc, nil, http.MethodGet, "/whoami", token, func(c *gin.Context) {
		assert.True(t, HasPermission(c, "procurement:read"))
		assert.False(t, HasPermission(c, "payment:release"))
		assert.True(t, HasAnyPermission(c, "ledger:read", "procurement:manage"))
		assert.False(t, HasAnyPermission(c, "ledger:read", "ledger:manage"))
		assert.True(t, HasAllPermissions(c, "procurement:read", "procurement:manage"))
		assert.False(t, HasAllPermissions(c, "procurement:read", "payment:release"))
		c.JSON(http.StatusOK, gin.H{})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPermissionQueryHelpersWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/whoami", func(c *gin.Context) {
		assert.False(t, HasPermission(c, "procurement:read"))
		assert.False(t, HasAnyPermission(c, "procurement:read"))
		assert.False(t, HasAllPermissions(c, "procurement:read"))
		c.JSON(http.StatusOK, gin.H{})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMustHavePermission(t *testing.T) {
	svc := newTestJWTService()
	token := grantToken(t, svc, "procurement:read")

	handler := func(required string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if MustHavePermission(c, required) {
				c.JSON(http.StatusOK, gin.H{})
			}
		}
	}

	rec := permServe(svc, nil, http.MethodGet, "/receipts", token, handler("procurement:read"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = permServe(svc, nil, http.MethodGet, "/receipts", token, handler("payment:release"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireCustomPermission(t *testing.T) {
	svc := newTestJWTService()

	// Admit anyone holding at least one permission under the procurement
	// resource, regardless of action.
	anyProcurement := RequireCustomPermission(func(claims *auth.Claims, c *gin.Context) bool {
		for _, p := range claims.Permissions {
			if strings.HasPrefix(p, "procurement:") {
				return true
			}
		}
		return false
	})

	token := grantToken(t, svc, "procurement:read")
	rec := permServe(svc, anyProcurement, http.MethodGet, "/receipts", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	token = grantToken(t, svc, "ledger:read")
	rec = permServe(svc, anyProcurement, http.MethodGet, "/receipts", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPermissionDeniedResponseShape(t *testing.T) {
	svc := newTestJWTService()
	token := grantToken(t, svc)

	rec := permServe(svc, RequirePermission("procurement:read"), http.MethodGet, "/receipts", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["success"].(bool))

	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "ERR_FORBIDDEN", errInfo["code"])
	assert.Contains(t, errInfo["message"], "insufficient permissions")
}

func TestPermissionOnDeniedOverride(t *testing.T) {
	svc := newTestJWTService()
	token := grantToken(t, svc, "ledger:read")

	called := false
	cfg := PermissionConfig{
		Logger: zaptest.NewLogger(t),
		OnDenied: func(c *gin.Context, requiredPerms []string) {
			called = true
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"required": requiredPerms})
		},
	}

	rec := permServe(svc, RequireAnyPermissionWithConfig(cfg, "procurement:read"), http.MethodGet, "/receipts", token, nil)

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:     "read",
		http.MethodHead:    "read",
		http.MethodOptions: "read",
		http.MethodPost:    "create",
		http.MethodPut:     "update",
		http.MethodPatch:   "update",
		http.MethodDelete:  "delete",
		"UNKNOWN":          "read",
	}
	for method, want := range cases {
		assert.Equal(t, want, methodToAction(method), method)
	}
}

func TestMatchRoute(t *testing.T) {
	cases := map[string]struct {
		route  RoutePermission
		method string
		path   string
		want   bool
	}{
		"exact":                   {RoutePermission{Method: "GET", Path: "/api/receipts"}, "GET", "/api/receipts", true},
		"method mismatch":         {RoutePermission{Method: "GET", Path: "/api/receipts"}, "POST", "/api/receipts", false},
		"path mismatch":           {RoutePermission{Method: "GET", Path: "/api/receipts"}, "GET", "/api/payments", false},
		"wildcard method":         {RoutePermission{Method: "*", Path: "/api/receipts"}, "DELETE", "/api/receipts", true},
		"prefix":                  {RoutePermission{Method: "GET", Path: "/api/receipts*"}, "GET", "/api/receipts/123", true},
		"prefix matches its root": {RoutePermission{Method: "GET", Path: "/api/receipts*"}, "GET", "/api/receipts", true},
		"case insensitive method": {RoutePermission{Method: "get", Path: "/api/receipts"}, "GET", "/api/receipts", true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchRoute(&tc.route, tc.method, tc.path))
		})
	}
}
