package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-backend/internal/domains/refund/model"
)

// =====================================================
// REPOSITORY INTERFACES
// =====================================================

// RefundRepoInterface is the persistence boundary for refund requests and
// their line items.
//
// Transition methods (Approve, Reject, Cancel, MarkFailed, MarkCompletedTx)
// are conditional updates: the WHERE clause re-checks the expected current
// status so a concurrent transition makes the statement affect zero rows
// instead of overwriting. Zero rows is surfaced as a typed RefundError
// wrapping model.ErrRefundConflict (or model.ErrRefundNotFound when the
// row does not exist).
type RefundRepoInterface interface {
	// Create persists the request and its line items atomically.
	Create(ctx context.Context, refund *model.RefundRequest) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
	// GetByGatewayRefundID resolves a gateway webhook event back to the
	// local refund request.
	GetByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*model.RefundRequest, error)
	GetLineItems(ctx context.Context, refundRequestID uuid.UUID) ([]model.RefundLineItem, error)

	// List returns refund requests filtered by status (empty = all), newest
	// first, with the total count for pagination.
	List(ctx context.Context, status string, limit, offset int) ([]model.RefundRequest, int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundRequest, error)

	// RefundedQuantities sums refunded quantity per order line item across
	// the order's open and completed requests (rejected and cancelled do not
	// reserve quantity).
	RefundedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error)
	// RefundedAmountTotal sums the amounts of the order's open and completed
	// requests, for the remaining-balance check.
	RefundedAmountTotal(ctx context.Context, orderID uuid.UUID) (int64, error)

	// Status transitions (conditional updates)
	Approve(ctx context.Context, id uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID, reason *string) error
	Cancel(ctx context.Context, id uuid.UUID, expectedStatus string) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// SetGatewayRefundID records the gateway's refund id without changing
	// status; first write wins.
	SetGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error

	// GetForSettlementTx reads the refund, its order, its line items and the
	// order's other completed refund total under a row lock on the refund.
	GetForSettlementTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.SettlementSnapshot, error)

	// MarkCompletedTx finalizes the refund inside the settlement transaction.
	MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, gatewayRefundID *string, processedAt time.Time) error
}

// TransactionManager exposes transaction control to the settlement service,
// which needs explicit phase boundaries rather than a closure.
type TransactionManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
