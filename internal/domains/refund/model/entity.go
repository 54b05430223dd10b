package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// REFUND REQUEST ENTITY
// =====================================================

// RefundRequest is the source of truth for one refund and its status
// transitions. All money is integer minor currency units. Records are never
// physically deleted: cancellation is a soft delete plus status flip, to
// satisfy accounting retention.
type RefundRequest struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OrderID uuid.UUID `json:"order_id" db:"order_id"`

	// Request details
	Amount int64   `json:"amount" db:"amount"`
	Reason string  `json:"reason" db:"reason"`
	Note   *string `json:"note,omitempty" db:"note"`

	// Status
	Status string `json:"status" db:"status"`

	// Gateway refund tracking. GatewayRefundID is set once a gateway call
	// is accepted and immutable afterwards.
	GatewayRefundID *string `json:"gateway_refund_id,omitempty" db:"gateway_refund_id"`

	// Timestamps
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Line items, populated on detail reads.
	LineItems []RefundLineItem `json:"line_items,omitempty" db:"-"`
}

// IsPending checks if the request is awaiting approval.
func (r *RefundRequest) IsPending() bool {
	return r.Status == RefundStatusPending
}

// CanBeApproved checks if the request can transition to approved.
func (r *RefundRequest) CanBeApproved() bool {
	return r.Status == RefundStatusPending && r.DeletedAt == nil
}

// CanBeRejected checks if the request can transition to rejected.
func (r *RefundRequest) CanBeRejected() bool {
	return r.Status == RefundStatusPending && r.DeletedAt == nil
}

// CanBeCancelled checks if the request can transition to cancelled.
// Only pending and approved requests may be cancelled.
func (r *RefundRequest) CanBeCancelled() bool {
	return (r.Status == RefundStatusPending || r.Status == RefundStatusApproved) &&
		r.DeletedAt == nil
}

// CanBeSettled checks if settlement may run. Failed requests stay eligible
// so an operator can re-invoke settlement after a gateway failure.
func (r *RefundRequest) CanBeSettled() bool {
	return (r.Status == RefundStatusApproved || r.Status == RefundStatusFailed) &&
		r.DeletedAt == nil
}

// IsTerminal reports whether the status machine can still move forward.
// Failed is not terminal: settlement may be re-invoked.
func (r *RefundRequest) IsTerminal() bool {
	switch r.Status {
	case RefundStatusCompleted, RefundStatusRejected, RefundStatusCancelled:
		return true
	}
	return false
}

// =====================================================
// REFUND LINE ITEM ENTITY
// =====================================================

// RefundLineItem ties part of a refund to one order line item. Amount is
// independent of unit price (partial-amount adjustments are allowed); the
// sum across a request's lines must equal the request amount.
type RefundLineItem struct {
	ID              uuid.UUID `json:"id" db:"id"`
	RefundRequestID uuid.UUID `json:"refund_request_id" db:"refund_request_id"`
	OrderLineItemID uuid.UUID `json:"order_line_item_id" db:"order_line_item_id"`

	// InventoryID is denormalized from the order line item so Phase 3 can
	// restock without extra joins.
	InventoryID uuid.UUID `json:"inventory_id" db:"inventory_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`

	Quantity int   `json:"quantity" db:"quantity"`
	Amount   int64 `json:"amount" db:"amount"`
	Restock  bool  `json:"restock" db:"restock"`
}

// =====================================================
// SETTLEMENT SNAPSHOT
// =====================================================

// SettlementSnapshot is the consistent view read under the Phase 1 row
// lock: the refund joined to its order, its line items, and the sum of
// other completed refunds on the same order.
type SettlementSnapshot struct {
	Refund    *RefundRequest
	LineItems []RefundLineItem

	OrderTotal      int64
	PaymentIntentID *string
	ChargeID        *string
	CustomerEmail   string
	OrderNumber     string

	// Sum of amounts of all other completed refunds against the order,
	// used to derive the aggregate payment status in Phase 3.
	OtherCompletedTotal int64
}
