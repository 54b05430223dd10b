package gateway

import (
	"context"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// RefundGateway wraps the external payment gateway's refund API. It is a
// narrow side-effecting boundary: the settlement controller calls it exactly
// once per attempt, and it performs no datastore writes.
type RefundGateway interface {
	// CreateRefund submits a refund to the gateway. The idempotency key
	// guarantees a retried call cannot create a second gateway-side refund.
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// =====================================================
// COMMON REQUEST/RESPONSE TYPES
// =====================================================

// Result states normalized from the gateway response.
const (
	StateSucceeded = "succeeded"
	StatePending   = "pending"
	StateFailed    = "failed"
)

// RefundRequest is the gateway-facing refund submission. At least one of
// PaymentIntentID / ChargeID must be set; absence of both is a local
// validation failure, not a gateway call.
type RefundRequest struct {
	PaymentIntentID string
	ChargeID        string

	Amount   int64  // minor currency units
	Reason   string // gateway reason code (already mapped)
	Metadata map[string]string

	// IdempotencyKey is derived deterministically from the refund request
	// id ("refund_<id>").
	IdempotencyKey string
}

// RefundResult is the normalized gateway response.
type RefundResult struct {
	State           string // succeeded | pending | failed
	GatewayRefundID string // empty when recovery after an idempotent replay failed
	Message         string // failure message for operator visibility

	// AlreadyRefunded marks the idempotent-replay case: the gateway
	// reported the charge as already refunded and the call is treated as
	// success.
	AlreadyRefunded bool
}

// ErrMissingPaymentReference is returned before any network call when the
// request carries neither payment reference form.
type ErrMissingPaymentReference struct{}

func (ErrMissingPaymentReference) Error() string {
	return "gateway refund requires a payment intent or charge reference"
}
