package middleware

import (
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// PrometheusMetrics records request count and latency per route. Unmatched
// paths are folded into one label to keep cardinality bounded.
func PrometheusMetrics(reg *telemetry.PrometheusRegistry) gin.HandlerFunc {
	if reg == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reg.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
