package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SystemHandler serves liveness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	store     ledger.Versioner
	timeout   time.Duration
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. When store is set the health
// check also reaches the record store.
func NewSystemHandler(name, version string, store ledger.Versioner, timeout time.Duration) *SystemHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SystemHandler{
		name:      name,
		version:   version,
		store:     store,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Store: "skipped"}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if _, err := h.store.Versions(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
			return
		}
		resp.Store = "ok"
	}
	h.Success(c, resp)
}
