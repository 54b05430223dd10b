package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"storefront-backend/internal/config"
	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/domains/refund/service"
	"storefront-backend/internal/shared/response"
	"storefront-backend/pkg/logger"
)

// =====================================================
// STRIPE WEBHOOK HANDLER
// =====================================================

// WebhookHandler receives Stripe's asynchronous refund confirmations and
// finalizes refunds whose settlement stopped at a pending gateway result.
type WebhookHandler struct {
	settlementService service.SettlementServiceInterface
	webhookSecret     string

	// verifySignature is swappable in tests.
	verifySignature func(payload []byte, header, secret string) (stripe.Event, error)
}

func NewWebhookHandler(settlementService service.SettlementServiceInterface, cfg config.StripeConfig) *WebhookHandler {
	return &WebhookHandler{
		settlementService: settlementService,
		webhookSecret:     cfg.WebhookSecret,
		verifySignature:   webhook.ConstructEvent,
	}
}

// HandleStripeEvent handles POST /webhooks/stripe.
//
// Webhook responses follow Stripe's contract: 2xx acknowledges the event,
// anything else triggers redelivery. Events this service does not care
// about are acknowledged and dropped.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 65536))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Cannot read payload")
		return
	}

	event, err := h.verifySignature(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logger.Error("stripe webhook signature verification failed", err)
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Invalid signature")
		return
	}

	switch event.Type {
	case "refund.updated", "charge.refund.updated":
		h.handleRefundUpdated(c, event)
	default:
		response.Success(c, http.StatusOK, gin.H{"received": true})
	}
}

func (h *WebhookHandler) handleRefundUpdated(c *gin.Context, event stripe.Event) {
	var stripeRefund stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &stripeRefund); err != nil {
		logger.Error("failed to decode stripe refund event", err)
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeValidation, "Malformed event payload")
		return
	}

	if stripeRefund.Status != stripe.RefundStatusSucceeded {
		// Not final yet; acknowledge and wait for the next update.
		response.Success(c, http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := h.settlementService.ConfirmPendingRefund(c.Request.Context(), stripeRefund.ID)
	if err != nil {
		var refundErr *model.RefundError
		if errors.As(err, &refundErr) && refundErr.Code == model.ErrCodeRefundNotFound {
			// A refund created outside this service; acknowledge so Stripe
			// stops redelivering.
			logger.Warn("stripe refund event for unknown refund", map[string]interface{}{
				"gateway_refund_id": stripeRefund.ID,
			})
			response.Success(c, http.StatusOK, gin.H{"received": true})
			return
		}

		logger.Error("failed to confirm pending refund from webhook", err)
		response.ErrorResponse(c, http.StatusInternalServerError, model.ErrCodeInternalError, "Confirmation failed")
		return
	}

	response.Success(c, http.StatusOK, result)
}
