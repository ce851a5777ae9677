package handler

import (
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ItemHandler serves the item catalogue and stock movements
type ItemHandler struct {
	BaseHandler
	ledger *ledger.Service
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(svc *ledger.Service) *ItemHandler {
	return &ItemHandler{ledger: svc}
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListItems(c.Request.Context(), filter)))
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.ledger.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Create handles POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var req ledger.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.ledger.AddItem(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Update handles PATCH /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	var req ledger.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.ledger.UpdateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete handles DELETE /items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	req, ok := h.deleteRequest(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteItem(c.Request.Context(), c.Param("id"), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore handles POST /items/:id/restore
func (h *ItemHandler) Restore(c *gin.Context) {
	item, err := h.ledger.RestoreItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// EmptyBin handles DELETE /items/bin
func (h *ItemHandler) EmptyBin(c *gin.Context) {
	n, err := h.ledger.EmptyItemBin(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"purged": n})
}

// Receive handles POST /stock/receive
func (h *ItemHandler) Receive(c *gin.Context) {
	var req ledger.ReceiveStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.ledger.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Deduct handles POST /stock/deduct. The response reports both the
// requested and the applied quantity.
func (h *ItemHandler) Deduct(c *gin.Context) {
	var req ledger.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	adj, err := h.ledger.Deduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustmentResponse(adj))
}

// Restock handles POST /stock/restock
func (h *ItemHandler) Restock(c *gin.Context) {
	var req ledger.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	adj, err := h.ledger.Restock(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustmentResponse(adj))
}

// StockAdjustmentResponse is a stock movement with its clamp flag spelled out
type StockAdjustmentResponse struct {
	ledger.StockAdjustment
	Clamped bool `json:"clamped"`
}

func adjustmentResponse(a ledger.StockAdjustment) StockAdjustmentResponse {
	return StockAdjustmentResponse{StockAdjustment: a, Clamped: a.Clamped()}
}
