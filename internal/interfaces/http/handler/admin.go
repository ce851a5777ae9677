package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the ledger audit and whole-ledger export and import
type AdminHandler struct {
	BaseHandler
	ledger *ledger.Service
	store  ledger.Versioner
}

// NewAdminHandler creates a new AdminHandler. store may be nil when the
// record store does not track versions.
func NewAdminHandler(svc *ledger.Service, store ledger.Versioner) *AdminHandler {
	return &AdminHandler{ledger: svc, store: store}
}

// Verify handles POST /admin/verify
func (h *AdminHandler) Verify(c *gin.Context) {
	h.Success(c, h.ledger.Verify(c.Request.Context()))
}

// Export handles GET /admin/export. The document is the import format:
// one JSON array per collection.
func (h *AdminHandler) Export(c *gin.Context) {
	snapshot, err := h.ledger.Snapshot(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	name := fmt.Sprintf("meeza-ledger-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.JSON(http.StatusOK, snapshot)
}

// Import handles POST /admin/import with an exported document as the body.
// The whole ledger is replaced.
func (h *AdminHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Cannot read request body: "+err.Error())
		return
	}
	result, err := h.ledger.RestoreCollections(c.Request.Context(), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CollectionInfo describes one stored collection
type CollectionInfo struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	Version *int64 `json:"version,omitempty"`
}

// Collections handles GET /admin/collections
func (h *AdminHandler) Collections(c *gin.Context) {
	snapshot, err := h.ledger.Snapshot(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var versions map[string]int64
	if h.store != nil {
		if versions, err = h.store.Versions(c.Request.Context()); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	out := make([]CollectionInfo, 0, len(ledger.Collections))
	for _, name := range ledger.Collections {
		info := CollectionInfo{Name: name, Records: len(snapshot[name])}
		if v, ok := versions[name]; ok {
			info.Version = &v
		}
		out = append(out, info)
	}
	h.Success(c, out)
}
