package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/procureflow/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// PermissionConfig tunes the permission middlewares. Both fields are
// optional; the zero value denies with a plain 403 and logs nothing.
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied replaces the default 403 response when set.
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// permissionCheck decides whether the authenticated claims satisfy a guard.
type permissionCheck func(claims *auth.Claims) bool

// guard builds the common middleware shape: resolve claims, run the check,
// deny or pass through.
func guard(cfg PermissionConfig, required []string, passed string, check permissionCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, required, "no authentication claims")
			return
		}

		if !check(claims) {
			handlePermissionDenied(c, cfg, required, "missing permission")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug(passed,
				zap.String("user_id", claims.UserID),
				zap.Strings("required", required),
				zap.Strings("granted", claims.Permissions),
			)
		}
		c.Next()
	}
}

// RequirePermission guards a route behind a single permission, e.g.
// "procurement:manage" in front of match approval.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

func RequirePermissionWithConfig(permission string, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermission passes requests whose claims hold at least one of
// the listed permissions.
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return guard(cfg, permissions, "permission check passed", func(claims *auth.Claims) bool {
		return claims.HasAnyPermission(permissions...)
	})
}

// RequireAllPermissions passes requests only when the claims hold every
// listed permission.
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return RequireAllPermissionsWithConfig(PermissionConfig{}, permissions...)
}

func RequireAllPermissionsWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return guard(cfg, permissions, "all-permissions check passed", func(claims *auth.Claims) bool {
		return claims.HasAllPermissions(permissions...)
	})
}

// RequireResource derives the needed permission from the HTTP method, so
// one middleware covers a whole resource group: GET needs resource:read,
// POST resource:create, PUT/PATCH resource:update, DELETE resource:delete.
func RequireResource(resource string) gin.HandlerFunc {
	return RequireResourceWithConfig(resource, PermissionConfig{})
}

func RequireResourceWithConfig(resource string, cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		permission := resource + ":" + methodToAction(c.Request.Method)
		guard(cfg, []string{permission}, "resource permission check passed", func(claims *auth.Claims) bool {
			return claims.HasPermission(permission)
		})(c)
	}
}

// RequireResourceAction guards a route behind an explicit resource:action
// pair, for actions that do not follow the method mapping (e.g. "confirm").
func RequireResourceAction(resource, action string) gin.HandlerFunc {
	return RequirePermission(resource + ":" + action)
}

func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient permissions",
		},
	})
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		return
	}

	if cfg.Logger != nil {
		var userID string
		granted := []string{}
		if claims := GetJWTClaims(c); claims != nil {
			userID = claims.UserID
			granted = claims.Permissions
		}
		cfg.Logger.Warn("permission denied",
			zap.String("reason", reason),
			zap.String("user_id", userID),
			zap.Strings("required", requiredPerms),
			zap.Strings("granted", granted),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	forbid(c)
}

// RoutePermission binds one route pattern to its required permissions.
// Method "*" matches every method; a trailing "*" in Path makes it a
// prefix match.
type RoutePermission struct {
	Method      string
	Path        string
	Permissions []string
	// RequireAll demands every permission instead of any one.
	RequireAll bool
}

// RoutePermissionConfig drives RoutePermissionMiddleware: a permission
// table for the whole API in one place instead of per-route middleware.
type RoutePermissionConfig struct {
	Routes []RoutePermission
	Logger *zap.Logger
	// DefaultDeny rejects requests that match no table entry. Leave false
	// to let unlisted routes through to their own guards.
	DefaultDeny bool
	OnDenied    func(c *gin.Context, route *RoutePermission)
}

// RoutePermissionMiddleware checks each request against the route table.
func RoutePermissionMiddleware(cfg RoutePermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// FullPath gives the registered pattern (with :params); fall back
		// to the raw path for unregistered routes.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		var matched *RoutePermission
		for i := range cfg.Routes {
			if matchRoute(&cfg.Routes[i], method, path) {
				matched = &cfg.Routes[i]
				break
			}
		}

		if matched == nil {
			if !cfg.DefaultDeny {
				c.Next()
				return
			}
			if cfg.Logger != nil {
				cfg.Logger.Warn("no route permission entry, denying",
					zap.String("path", path),
					zap.String("method", method),
				)
			}
			handleRoutePermissionDenied(c, cfg, nil)
			return
		}

		claims := GetJWTClaims(c)
		if claims == nil {
			handleRoutePermissionDenied(c, cfg, matched)
			return
		}

		ok := claims.HasAnyPermission(matched.Permissions...)
		if matched.RequireAll {
			ok = claims.HasAllPermissions(matched.Permissions...)
		}
		if !ok {
			handleRoutePermissionDenied(c, cfg, matched)
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("route permission check passed",
				zap.String("user_id", claims.UserID),
				zap.String("path", path),
				zap.String("method", method),
				zap.Strings("required", matched.Permissions),
			)
		}
		c.Next()
	}
}

func matchRoute(route *RoutePermission, method, path string) bool {
	if route.Method != "*" && !strings.EqualFold(route.Method, method) {
		return false
	}
	if strings.HasSuffix(route.Path, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(route.Path, "*"))
	}
	return route.Path == path
}

func handleRoutePermissionDenied(c *gin.Context, cfg RoutePermissionConfig, route *RoutePermission) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, route)
		return
	}

	if cfg.Logger != nil {
		var userID string
		granted := []string{}
		if claims := GetJWTClaims(c); claims != nil {
			userID = claims.UserID
			granted = claims.Permissions
		}
		required := []string{}
		if route != nil {
			required = route.Permissions
		}
		cfg.Logger.Warn("route permission denied",
			zap.String("user_id", userID),
			zap.Strings("required", required),
			zap.Strings("granted", granted),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	forbid(c)
}

// HasPermission reports whether the request's claims carry a permission.
// Handlers use it for checks finer than route-level guards, e.g. redacting
// ledger balances from a read-only role.
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasPermission(permission)
}

func HasAnyPermission(c *gin.Context, permissions ...string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasAnyPermission(permissions...)
}

func HasAllPermissions(c *gin.Context, permissions ...string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasAllPermissions(permissions...)
}

// MustHavePermission aborts with 403 when the permission is missing and
// reports whether the handler may continue.
func MustHavePermission(c *gin.Context, permission string) bool {
	if !HasPermission(c, permission) {
		forbid(c)
		return false
	}
	return true
}

// CheckPermissionFunc is a custom claims predicate for rules that plain
// permission strings cannot express, e.g. matching tenant against a path
// parameter.
type CheckPermissionFunc func(claims *auth.Claims, c *gin.Context) bool

func RequireCustomPermission(checkFunc CheckPermissionFunc) gin.HandlerFunc {
	return RequireCustomPermissionWithConfig(checkFunc, PermissionConfig{})
}

func RequireCustomPermissionWithConfig(checkFunc CheckPermissionFunc, cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, []string{"custom"}, "no authentication claims")
			return
		}
		if !checkFunc(claims, c) {
			handlePermissionDenied(c, cfg, []string{"custom"}, "custom permission check failed")
			return
		}
		c.Next()
	}
}
