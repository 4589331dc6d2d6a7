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

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("printer", "/printer")
	group.GET("/status", func(c *gin.Context) {
		c.String(http.StatusOK, "ready")
	})
	r.Register(group)
	assert.Len(t, r.registrars, 1)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/printer/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("batches", "/batches")
		assert.Equal(t, "batches", g.Name())
		assert.Equal(t, "/batches", g.Prefix())
	})

	t.Run("registers GET and POST routes", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("batches", "/batches").
			GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) }).
			POST("", func(c *gin.Context) { c.String(http.StatusAccepted, "queued") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/batches/abc")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())

		w = serve(engine, http.MethodPost, "/api/v1/batches")
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("applies middleware to subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("station", "")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.Group("labels", "/labels").GET("/defaults", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/labels/defaults")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})

	t.Run("unregistered method is not routed", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("labels", "/labels").
			POST("/preview", func(c *gin.Context) { c.Status(http.StatusOK) }).
			RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/labels/preview")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	receiving := NewDomainGroup("receiving", "/purchase-orders").
		GET("", func(c *gin.Context) { c.String(http.StatusOK, "orders") })
	warehouses := NewDomainGroup("warehouses", "/warehouses").
		GET("", func(c *gin.Context) { c.String(http.StatusOK, "warehouses") })

	r.Register(receiving).Register(warehouses)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/purchase-orders")
	assert.Equal(t, "orders", w.Body.String())
	w = serve(engine, http.MethodGet, "/api/v1/warehouses")
	assert.Equal(t, "warehouses", w.Body.String())
}
