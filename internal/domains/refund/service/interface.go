package service

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/refund/model"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================

// RefundServiceInterface covers the refund request lifecycle up to approval:
// creation, review decisions, cancellation and the bulk variants.
type RefundServiceInterface interface {
	// CreateRefundRequest creates an operator-specified refund with explicit
	// line items and amounts.
	CreateRefundRequest(ctx context.Context, dto *model.CreateRefundRequestDTO) (*model.RefundRequest, error)
	// CreateReturnRequest creates a customer-initiated refund covering the
	// full remaining refundable quantity of every line item.
	CreateReturnRequest(ctx context.Context, dto *model.CreateReturnRequestDTO) (*model.RefundRequest, error)

	GetRefundRequest(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
	ListRefundRequests(ctx context.Context, status string, page, limit int) ([]model.RefundRequest, int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundRequest, error)

	ApproveRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
	RejectRefund(ctx context.Context, id uuid.UUID, dto *model.RejectRefundRequestDTO) (*model.RefundRequest, error)
	CancelRefund(ctx context.Context, id uuid.UUID) error

	BulkApprove(ctx context.Context, dto *model.BulkRefundRequestDTO) (*model.BulkRefundResultDTO, error)
	BulkReject(ctx context.Context, dto *model.BulkRefundRequestDTO) (*model.BulkRefundResultDTO, error)
}

// SettlementServiceInterface is the settlement saga controller: the
// three-phase flow that moves money at the gateway and finalizes the local
// records.
type SettlementServiceInterface interface {
	// ProcessSettlement runs the full saga for an approved (or failed,
	// retried) refund request.
	ProcessSettlement(ctx context.Context, id uuid.UUID) (*model.SettlementResultDTO, error)
	// ConfirmPendingRefund finalizes a refund whose gateway call returned
	// pending, keyed by the gateway refund id from the webhook event.
	ConfirmPendingRefund(ctx context.Context, gatewayRefundID string) (*model.SettlementResultDTO, error)
}

// =====================================================
// COLLABORATOR INTERFACES
// =====================================================

// RefundNotifier enqueues customer notifications. Satisfied by the queue
// client; failures are logged, never propagated.
type RefundNotifier interface {
	EnqueueRefundApprovedEmail(payload model.RefundApprovedEmailPayload) error
	EnqueueRefundRejectedEmail(payload model.RefundRejectedEmailPayload) error
}

// CacheInvalidator drops cached reads after a write. Satisfied by the
// invalidation bus.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tags ...string)
}
