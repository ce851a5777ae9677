package handler

import (
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SaleHandler serves sales invoices and their returns
type SaleHandler struct {
	BaseHandler
	ledger *ledger.Service
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(svc *ledger.Service) *SaleHandler {
	return &SaleHandler{ledger: svc}
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListSales(c.Request.Context(), filter)))
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	sale, err := h.ledger.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Create handles POST /sales. Lines short on stock still sell; the result
// lists what was actually deducted.
func (h *SaleHandler) Create(c *gin.Context) {
	var req ledger.CreateSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Delete handles DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	req, ok := h.deleteRequest(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteSale(c.Request.Context(), c.Param("id"), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore handles POST /sales/:id/restore
func (h *SaleHandler) Restore(c *gin.Context) {
	sale, err := h.ledger.RestoreSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// EmptyBin handles DELETE /sales/bin
func (h *SaleHandler) EmptyBin(c *gin.Context) {
	n, err := h.ledger.EmptySaleBin(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"purged": n})
}

// Returnable handles GET /sales/:id/returnable
func (h *SaleHandler) Returnable(c *gin.Context) {
	lines, err := h.ledger.ReturnableQuantities(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(lines))
}

// ListReturns handles GET /sale-returns, optionally filtered by sale_id
func (h *SaleHandler) ListReturns(c *gin.Context) {
	var filter ledger.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(h.ledger.ListSaleReturns(c.Request.Context(), filter)))
}

// CreateReturn handles POST /sale-returns. A request above what is left on
// the sale is rejected whole with 422.
func (h *SaleHandler) CreateReturn(c *gin.Context) {
	var req ledger.CreateSaleReturnRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.CreateSaleReturn(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// DeleteReturn handles DELETE /sale-returns/:id. The returned stock is
// taken back out.
func (h *SaleHandler) DeleteReturn(c *gin.Context) {
	req, ok := h.deleteRequest(c)
	if !ok {
		return
	}
	result, err := h.ledger.DeleteSaleReturn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RestoreReturn handles POST /sale-returns/:id/restore
func (h *SaleHandler) RestoreReturn(c *gin.Context) {
	result, err := h.ledger.RestoreSaleReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EmptyReturnBin handles DELETE /sale-returns/bin
func (h *SaleHandler) EmptyReturnBin(c *gin.Context) {
	n, err := h.ledger.EmptySaleReturnBin(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"purged": n})
}
