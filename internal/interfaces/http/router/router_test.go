package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/persistence"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v2/test/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("items", "/items")
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
		g.GET("", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, m := range []string{http.MethodGet, http.MethodPost} {
			assert.Equal(t, m, serve(engine, m, "/api/v1/items", "").Body.String())
		}
		for _, m := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
			assert.Equal(t, m, serve(engine, m, "/api/v1/items/7", "").Body.String())
		}
		assert.Equal(t, "items", g.Name())
		assert.Equal(t, "/items", g.Prefix())
	})

	t.Run("applies middleware and subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").Use(func(c *gin.Context) {
			c.Header("X-Group", "admin")
			c.Next()
		})
		g.Group("audit", "/audit").GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/admin/audit", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin", w.Header().Get("X-Group"))
	})
}

func newTestEngine(t *testing.T, httpCfg config.HTTPConfig) (*gin.Engine, *telemetry.PrometheusRegistry) {
	t.Helper()
	store := persistence.NewMemoryRecordStore()
	svc := ledger.NewService(store, zap.NewNop())
	prom := telemetry.NewPrometheusRegistry("routertest")
	system := handler.NewSystemHandler("meeza-ledger", "test", store, time.Second)

	engine, stop := NewEngine(EngineConfig{
		HTTP:        httpCfg,
		ServiceName: "meeza-ledger",
		Prometheus:  prom,
		Health:      system.Health,
		Logger:      zap.NewNop(),
	})
	t.Cleanup(stop)

	RegisterLedger(NewRouter(engine), Handlers{
		Items:     handler.NewItemHandler(svc),
		Sales:     handler.NewSaleHandler(svc),
		Purchases: handler.NewPurchaseHandler(svc),
		Suppliers: handler.NewSupplierHandler(svc),
		Admin:     handler.NewAdminHandler(svc, store),
		System:    system,
	}).Setup()
	return engine, prom
}

func TestNewEngine(t *testing.T) {
	engine, _ := newTestEngine(t, config.HTTPConfig{MaxBodySize: 1 << 20})

	t.Run("health", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("unknown routes use the error envelope", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/nope", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeRouteNotFound, resp.Error.Code)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		serve(engine, http.MethodGet, "/api/v1/items", "")
		w := serve(engine, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `routertest_http_requests_total{method="GET",route="/api/v1/items"`)
	})

	t.Run("bin routes do not collide with ids", func(t *testing.T) {
		w := serve(engine, http.MethodDelete, "/api/v1/items/bin", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewEngine_RateLimit(t *testing.T) {
	engine, _ := newTestEngine(t, config.HTTPConfig{
		RateLimitEnabled:  true,
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
	})

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/items", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodGet, "/api/v1/items", "").Code)
}

func TestRegisterLedger_EndToEnd(t *testing.T) {
	engine, _ := newTestEngine(t, config.HTTPConfig{})

	w := serve(engine, http.MethodPost, "/api/v1/suppliers", `{"name":"Nile Traders"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = serve(engine, http.MethodPost, "/api/v1/purchases",
		`{"supplier_id":"`+created.Data.ID+`","lines":[{"name":"Tea","quantity":10,"cost_price":"5"}],"paid_amount":"20"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(engine, http.MethodGet, "/api/v1/suppliers/"+created.Data.ID+"/statement", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodPost, "/api/v1/admin/verify", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"findings":[]`)
}
