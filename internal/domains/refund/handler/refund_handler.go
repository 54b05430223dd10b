package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/domains/refund/service"
	"storefront-backend/internal/shared/response"
	"storefront-backend/pkg/logger"
)

// =====================================================
// REFUND HANDLER
// =====================================================

type RefundHandler struct {
	refundService     service.RefundServiceInterface
	settlementService service.SettlementServiceInterface
}

func NewRefundHandler(
	refundService service.RefundServiceInterface,
	settlementService service.SettlementServiceInterface,
) *RefundHandler {
	return &RefundHandler{
		refundService:     refundService,
		settlementService: settlementService,
	}
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// Create handles POST /admin/refunds
func (h *RefundHandler) Create(c *gin.Context) {
	var dto model.CreateRefundRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	refund, err := h.refundService.CreateRefundRequest(c.Request.Context(), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, refund)
}

// List handles GET /admin/refunds?status=&page=&limit=
func (h *RefundHandler) List(c *gin.Context) {
	status := c.Query("status")
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	refunds, total, err := h.refundService.ListRefundRequests(c.Request.Context(), status, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, refunds, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: int(total),
	})
}

// Get handles GET /admin/refunds/:id
func (h *RefundHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	refund, err := h.refundService.GetRefundRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, refund)
}

// Approve handles POST /admin/refunds/:id/approve
func (h *RefundHandler) Approve(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	refund, err := h.refundService.ApproveRefund(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, refund)
}

// Reject handles POST /admin/refunds/:id/reject
func (h *RefundHandler) Reject(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// Body is optional for rejections; a bind failure falls back to an
	// empty reason.
	var dto model.RejectRefundRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		dto = model.RejectRefundRequestDTO{}
	}

	refund, err := h.refundService.RejectRefund(c.Request.Context(), id, &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, refund)
}

// Settle handles POST /admin/refunds/:id/settle
func (h *RefundHandler) Settle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.settlementService.ProcessSettlement(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// A failed gateway outcome is a settlement result, not a server error:
	// the request is persisted as failed and stays retry-eligible.
	statusCode := http.StatusOK
	if result.Outcome == model.SettlementOutcomeFailed {
		statusCode = http.StatusUnprocessableEntity
	}

	response.Success(c, statusCode, result)
}

// BulkApprove handles POST /admin/refunds/bulk-approve
func (h *RefundHandler) BulkApprove(c *gin.Context) {
	var dto model.BulkRefundRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.refundService.BulkApprove(c.Request.Context(), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// BulkReject handles POST /admin/refunds/bulk-reject
func (h *RefundHandler) BulkReject(c *gin.Context) {
	var dto model.BulkRefundRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.refundService.BulkReject(c.Request.Context(), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// =====================================================
// CUSTOMER ENDPOINTS
// =====================================================

// CreateReturn handles POST /returns
func (h *RefundHandler) CreateReturn(c *gin.Context) {
	var dto model.CreateReturnRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	refund, err := h.refundService.CreateReturnRequest(c.Request.Context(), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, refund)
}

// Cancel handles DELETE /refunds/:id
func (h *RefundHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.refundService.CancelRefund(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

// ListByOrder handles GET /orders/:id/refunds
func (h *RefundHandler) ListByOrder(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	refunds, err := h.refundService.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, refunds)
}

// =====================================================
// ERROR MAPPING
// =====================================================

// respondError maps domain errors to HTTP statuses by error code.
func (h *RefundHandler) respondError(c *gin.Context, err error) {
	var refundErr *model.RefundError
	if errors.As(err, &refundErr) {
		response.ErrorResponse(c, statusForCode(refundErr.Code), refundErr.Code, refundErr.Message)
		return
	}

	logger.Error("unhandled refund error", err)
	response.ErrorResponse(c, http.StatusInternalServerError, model.ErrCodeInternalError, "Internal server error")
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeRefundNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeRefundConflict, model.ErrCodeAlreadyProcessed, model.ErrCodeNotApproved:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeQuantityExceeded, model.ErrCodeAmountExceeded:
		return http.StatusBadRequest
	case model.ErrCodeNoChargeReference:
		return http.StatusUnprocessableEntity
	case model.ErrCodeGatewayFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// =====================================================
// PARAM HELPERS
// =====================================================

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
