package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"

	"storefront-backend/internal/config"
	"storefront-backend/internal/domains/refund/model"
)

func setupWebhookRouter(settlementSvc *stubSettlementService, event stripe.Event, verifyErr error) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewWebhookHandler(settlementSvc, config.StripeConfig{WebhookSecret: "whsec_test"})
	h.verifySignature = func(payload []byte, header, secret string) (stripe.Event, error) {
		return event, verifyErr
	}

	r := gin.New()
	r.POST("/webhooks/stripe", h.HandleStripeEvent)
	return r
}

func refundEvent(t *testing.T, eventType string, refund stripe.Refund) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(refund)
	require.NoError(t, err)
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func postWebhook(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte("{}")))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookSignatureRejected(t *testing.T) {
	r := setupWebhookRouter(&stubSettlementService{}, stripe.Event{}, errors.New("bad signature"))

	w := postWebhook(r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookConfirmsSucceededRefund(t *testing.T) {
	result := &model.SettlementResultDTO{
		RefundRequestID: uuid.New(),
		Outcome:         model.SettlementOutcomeCompleted,
	}
	event := refundEvent(t, "refund.updated", stripe.Refund{
		ID:     "re_hook_1",
		Status: stripe.RefundStatusSucceeded,
	})
	r := setupWebhookRouter(&stubSettlementService{result: result}, event, nil)

	w := postWebhook(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.SettlementOutcomeCompleted)
}

func TestWebhookIgnoresNonFinalRefund(t *testing.T) {
	event := refundEvent(t, "refund.updated", stripe.Refund{
		ID:     "re_hook_2",
		Status: stripe.RefundStatusPending,
	})
	// The settlement service must not be reached.
	r := setupWebhookRouter(&stubSettlementService{err: errors.New("should not be called")}, event, nil)

	w := postWebhook(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
}

func TestWebhookAcknowledgesUnknownRefund(t *testing.T) {
	event := refundEvent(t, "refund.updated", stripe.Refund{
		ID:     "re_foreign",
		Status: stripe.RefundStatusSucceeded,
	})
	svc := &stubSettlementService{err: model.NewRefundNotFoundError("re_foreign")}
	r := setupWebhookRouter(svc, event, nil)

	// 200 so Stripe stops redelivering an event this service cannot use.
	w := postWebhook(r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	event := stripe.Event{Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte("{}")}}
	r := setupWebhookRouter(&stubSettlementService{err: errors.New("should not be called")}, event, nil)

	w := postWebhook(r)
	assert.Equal(t, http.StatusOK, w.Code)
}
