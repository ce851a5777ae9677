package handler

import (
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PurchaseHandler serves supplier receipts and purchase returns
type PurchaseHandler struct {
	BaseHandler
	ledger *ledger.Service
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(svc *ledger.Service) *PurchaseHandler {
	return &PurchaseHandler{ledger: svc}
}

// List handles GET /purchases, optionally filtered by supplier_id
func (h *PurchaseHandler) List(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListPurchases(c.Request.Context(), filter)))
}

// Get handles GET /purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	p, err := h.ledger.GetPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Create handles POST /purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req ledger.CreatePurchaseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// PurchaseReturnBody is the body of a purchase return; the receipt comes
// from the path.
type PurchaseReturnBody struct {
	Lines  []ledger.ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
	Reason string                     `json:"reason"`
}

// Return handles POST /purchases/:id/return
func (h *PurchaseHandler) Return(c *gin.Context) {
	var body PurchaseReturnBody
	if !h.bindJSON(c, &body) {
		return
	}
	result, err := h.ledger.ReturnPurchase(c.Request.Context(), ledger.ReturnPurchaseRequest{
		PurchaseID: c.Param("id"),
		Lines:      body.Lines,
		Reason:     body.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Restore handles POST /purchases/:id/restore, reversing the receipt's
// purchase return.
func (h *PurchaseHandler) Restore(c *gin.Context) {
	result, err := h.ledger.RestorePurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
