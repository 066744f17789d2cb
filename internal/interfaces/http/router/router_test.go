package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("procurement", "/procurement")
	r.Register(group)

	assert.Len(t, r.registrars, 1)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("procurement", "/procurement")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/procurement/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterUse(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Use(func(c *gin.Context) {
		c.Header("X-Tenant-Check", "passed")
		c.Next()
	})

	group := NewDomainGroup("procurement", "/procurement")
	group.GET("/bills", func(c *gin.Context) {
		c.String(http.StatusOK, "bills")
	})

	r.Register(group).Setup()

	req := httptest.NewRequest("GET", "/api/v1/procurement/bills", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "passed", w.Header().Get("X-Tenant-Check"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name", func(t *testing.T) {
		g := NewDomainGroup("procurement", "/procurement")
		assert.Equal(t, "procurement", g.Name())
	})

	t.Run("registers routes for each verb", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("procurement", "/procurement")
		g.GET("/bills", func(c *gin.Context) {
			c.String(http.StatusOK, "listed")
		})
		g.POST("/receipts", func(c *gin.Context) {
			c.String(http.StatusCreated, "created")
		})
		g.PUT("/bills/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "replaced")
		})
		g.PATCH("/bills/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "amended")
		})
		g.DELETE("/drafts/:id", func(c *gin.Context) {
			c.String(http.StatusNoContent, "")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		tests := []struct {
			method string
			path   string
			status int
		}{
			{"GET", "/api/v1/procurement/bills", http.StatusOK},
			{"POST", "/api/v1/procurement/receipts", http.StatusCreated},
			{"PUT", "/api/v1/procurement/bills/17", http.StatusOK},
			{"PATCH", "/api/v1/procurement/bills/17", http.StatusOK},
			{"DELETE", "/api/v1/procurement/drafts/3", http.StatusNoContent},
		}
		for _, tt := range tests {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("procurement", "/procurement")

		g.Use(func(c *gin.Context) {
			c.Header("X-Approval-Gate", "checked")
			c.Next()
		})

		g.GET("/matches", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("GET", "/api/v1/procurement/matches", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, "checked", w.Header().Get("X-Approval-Gate"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("procurement", "/procurement")

		receipts := g.Group("receipts", "/receipts")
		receipts.GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "receipt list")
		})

		bills := g.Group("bills", "/bills")
		bills.GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "bill list")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req1 := httptest.NewRequest("GET", "/api/v1/procurement/receipts", nil)
		w1 := httptest.NewRecorder()
		engine.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.Equal(t, "receipt list", w1.Body.String())

		req2 := httptest.NewRequest("GET", "/api/v1/procurement/bills", nil)
		w2 := httptest.NewRecorder()
		engine.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusOK, w2.Code)
		assert.Equal(t, "bill list", w2.Body.String())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	procurement := NewDomainGroup("procurement", "/procurement")
	procurement.GET("/bills", func(c *gin.Context) {
		c.String(http.StatusOK, "bills")
	})

	system := NewDomainGroup("system", "/system")
	system.GET("/info", func(c *gin.Context) {
		c.String(http.StatusOK, "info")
	})

	r.Register(procurement).Register(system)
	r.Setup()

	req1 := httptest.NewRequest("GET", "/api/v1/procurement/bills", nil)
	w1 := httptest.NewRecorder()
	engine.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "bills", w1.Body.String())

	req2 := httptest.NewRequest("GET", "/api/v1/system/info", nil)
	w2 := httptest.NewRecorder()
	engine.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "info", w2.Body.String())
}

func TestChainedMethodCalls(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	g := NewDomainGroup("procurement", "/procurement")
	g.GET("/matches", func(c *gin.Context) { c.String(http.StatusOK, "a") }).
		POST("/matches", func(c *gin.Context) { c.String(http.StatusOK, "b") }).
		POST("/matches/:id/approve", func(c *gin.Context) { c.String(http.StatusOK, "c") })

	r.Register(g).Setup()

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/procurement/matches"},
		{"POST", "/api/v1/procurement/matches"},
		{"POST", "/api/v1/procurement/matches/42/approve"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "route %s %s should be registered", tt.method, tt.path)
	}
}
