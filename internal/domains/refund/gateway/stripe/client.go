package stripegw

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"

	"storefront-backend/internal/config"
	"storefront-backend/internal/domains/refund/gateway"
	"storefront-backend/pkg/logger"
)

// =====================================================
// STRIPE REFUND GATEWAY
// =====================================================

type Client struct {
	// Indirection over the stripe SDK calls so tests can stub the API
	// boundary without network access.
	newRefund   func(params *stripe.RefundParams) (*stripe.Refund, error)
	listRefunds func(params *stripe.RefundListParams) ([]*stripe.Refund, error)
}

func NewClient(cfg config.StripeConfig) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	stripe.Key = cfg.SecretKey

	return &Client{
		newRefund:   refund.New,
		listRefunds: listRefunds,
	}, nil
}

func listRefunds(params *stripe.RefundListParams) ([]*stripe.Refund, error) {
	var refunds []*stripe.Refund
	iter := refund.List(params)
	for iter.Next() {
		refunds = append(refunds, iter.Refund())
	}
	return refunds, iter.Err()
}

// CreateRefund submits the refund to Stripe.
//
// Outcomes:
//   - succeeded: Stripe confirmed the refund immediately
//   - pending: Stripe accepted, confirmation arrives asynchronously
//   - failed: Stripe rejected, message preserved for the operator
//   - charge_already_refunded: treated as success (idempotent replay); the
//     existing refund id is recovered best-effort from the refund list
func (c *Client) CreateRefund(
	ctx context.Context,
	req gateway.RefundRequest,
) (*gateway.RefundResult, error) {
	if req.PaymentIntentID == "" && req.ChargeID == "" {
		return nil, gateway.ErrMissingPaymentReference{}
	}

	params := c.buildRefundParams(req)
	params.Context = ctx

	stripeRefund, err := c.newRefund(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
				return c.recoverExistingRefund(ctx, req), nil
			}
			// Gateway rejected the refund: a normalized hard failure,
			// not a transport error.
			return &gateway.RefundResult{
				State:   gateway.StateFailed,
				Message: stripeErr.Msg,
			}, nil
		}
		return nil, fmt.Errorf("stripe refund call failed: %w", err)
	}

	return c.normalizeRefund(stripeRefund), nil
}

func (c *Client) buildRefundParams(req gateway.RefundRequest) *stripe.RefundParams {
	params := &stripe.RefundParams{
		Amount: stripe.Int64(req.Amount),
		Reason: stripe.String(req.Reason),
	}
	if req.PaymentIntentID != "" {
		params.PaymentIntent = stripe.String(req.PaymentIntentID)
	}
	if req.ChargeID != "" {
		params.Charge = stripe.String(req.ChargeID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	return params
}

func (c *Client) normalizeRefund(r *stripe.Refund) *gateway.RefundResult {
	switch r.Status {
	case stripe.RefundStatusSucceeded:
		return &gateway.RefundResult{
			State:           gateway.StateSucceeded,
			GatewayRefundID: r.ID,
		}
	case stripe.RefundStatusFailed:
		return &gateway.RefundResult{
			State:           gateway.StateFailed,
			GatewayRefundID: r.ID,
			Message:         string(r.FailureReason),
		}
	default:
		// requires_action and canceled also land here; neither permits
		// finalization, so they are reported as pending.
		return &gateway.RefundResult{
			State:           gateway.StatePending,
			GatewayRefundID: r.ID,
		}
	}
}

// recoverExistingRefund looks up the refund Stripe already holds for the
// charge. Best-effort: an empty id is tolerated by the caller.
func (c *Client) recoverExistingRefund(ctx context.Context, req gateway.RefundRequest) *gateway.RefundResult {
	result := &gateway.RefundResult{
		State:           gateway.StateSucceeded,
		AlreadyRefunded: true,
	}

	listParams := &stripe.RefundListParams{}
	listParams.Context = ctx
	if req.ChargeID != "" {
		listParams.Charge = stripe.String(req.ChargeID)
	} else {
		listParams.PaymentIntent = stripe.String(req.PaymentIntentID)
	}
	listParams.Limit = stripe.Int64(10)

	refunds, err := c.listRefunds(listParams)
	if err != nil {
		logger.Error("failed to recover existing stripe refund id", err)
		return result
	}
	for _, r := range refunds {
		if r.Status == stripe.RefundStatusSucceeded {
			result.GatewayRefundID = r.ID
			break
		}
	}

	return result
}
