package handler

import (
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SupplierHandler serves suppliers, their payments and their ledger
type SupplierHandler struct {
	BaseHandler
	ledger *ledger.Service
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(svc *ledger.Service) *SupplierHandler {
	return &SupplierHandler{ledger: svc}
}

// List handles GET /suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListSuppliers(c.Request.Context(), filter)))
}

// Get handles GET /suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	s, err := h.ledger.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Create handles POST /suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	var req ledger.AddSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.ledger.AddSupplier(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, s)
}

// Update handles PUT /suppliers/:id
func (h *SupplierHandler) Update(c *gin.Context) {
	var req ledger.UpdateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.ledger.UpdateSupplier(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Delete handles DELETE /suppliers/:id. Suppliers with debt or credit
// outstanding are refused with 422.
func (h *SupplierHandler) Delete(c *gin.Context) {
	req, ok := h.deleteRequest(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteSupplier(c.Request.Context(), c.Param("id"), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore handles POST /suppliers/:id/restore
func (h *SupplierHandler) Restore(c *gin.Context) {
	s, err := h.ledger.RestoreSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Statement handles GET /suppliers/:id/statement
func (h *SupplierHandler) Statement(c *gin.Context) {
	st, err := h.ledger.SupplierStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// SettleCreditBody is the body of a credit settlement for the supplier in the path
type SettleCreditBody struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode" binding:"required,oneof=refund offset"`
}

// SettleCredit handles POST /suppliers/:id/settle-credit
func (h *SupplierHandler) SettleCredit(c *gin.Context) {
	var body SettleCreditBody
	if !h.bindJSON(c, &body) {
		return
	}
	result, err := h.ledger.SettleCredit(c.Request.Context(), ledger.SettleCreditRequest{
		SupplierID: c.Param("id"),
		Amount:     body.Amount,
		Mode:       body.Mode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListPayments handles GET /payments, optionally filtered by supplier_id
func (h *SupplierHandler) ListPayments(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListPayments(c.Request.Context(), filter)))
}

// RecordPayment handles POST /payments
func (h *SupplierHandler) RecordPayment(c *gin.Context) {
	var req ledger.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
