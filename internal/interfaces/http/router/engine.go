package router

import (
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig holds what NewEngine needs besides the routes
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	// Prometheus is optional; without it /metrics is not served
	Prometheus *telemetry.PrometheusRegistry
	// Health serves GET /health outside the versioned API
	Health gin.HandlerFunc
	Logger *zap.Logger
}

// NewEngine builds the gin engine with the middleware chain in order:
// request ID, recovery, tracing, request log, metrics, security headers,
// CORS, body limit and, if enabled, rate limiting. The returned stop
// function releases the rate limiter.
func NewEngine(cfg EngineConfig) (*gin.Engine, func()) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
			_ = engine.SetTrustedProxies(nil)
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestID(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.PrometheusMetrics(cfg.Prometheus))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.CORSAllowOrigins)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	stop := func() {}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
		stop = limiter.Stop
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrCodeRouteNotFound,
			"No route for "+c.Request.Method+" "+c.Request.URL.Path,
			middleware.GetRequestID(c),
		))
	})

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health)
	}
	if cfg.Prometheus != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Prometheus.Handler()))
	}

	return engine, stop
}
