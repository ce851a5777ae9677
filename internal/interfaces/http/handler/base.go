package handler

import (
	"errors"
	"net/http"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/resilience"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/dto"
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts service errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var exceeded *trade.ReturnQuantityExceededError
	if errors.As(err, &exceeded) {
		resp := dto.NewErrorResponse(trade.CodeReturnQuantityExceeded, err.Error(), requestID)
		resp.Error.Context = map[string]any{
			"item_id":   exceeded.ItemID,
			"requested": exceeded.Requested,
			"available": exceeded.Available,
		}
		c.JSON(dto.GetHTTPStatus(trade.CodeReturnQuantityExceeded), resp)
		return
	}

	// The message of the wrapping error names the entity, the sentinel does not
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(dto.GetHTTPStatus(domainErr.Code), dto.NewErrorResponse(domainErr.Code, err.Error(), requestID))
		return
	}

	if errors.Is(err, resilience.ErrStoreUnavailable) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeStoreUnavailable, "Record store is unavailable")
		return
	}

	logger.For(c.Request.Context(), logger.GetGinLogger(c)).Error("unhandled error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// bindJSON decodes the body into req and writes the 400 response itself
// when that fails, telling malformed JSON apart from failed validation.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		middleware.HandleValidationError(c, err)
		return false
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON: "+err.Error())
	return false
}

// deleteRequest reads the deletion reason from a JSON body, or from the
// reason query parameter when the request has no body.
func (h *BaseHandler) deleteRequest(c *gin.Context) (ledger.DeleteRequest, bool) {
	var req ledger.DeleteRequest
	if c.Request.ContentLength > 0 {
		return req, h.bindJSON(c, &req)
	}
	req.Reason = c.Query("reason")
	return req, true
}

// bindQuery decodes query parameters into req
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.BadRequest(c, err.Error())
		return false
	}
	return true
}
