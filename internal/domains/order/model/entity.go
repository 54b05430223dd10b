package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// PAYMENT STATUS
// =====================================================
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusPartiallyRefunded = "partially_refunded"
	PaymentStatusRefunded          = "refunded"
)

// =====================================================
// ORDER ENTITY
// =====================================================

// Order is the read-side view the refund pipeline needs: totals, payment
// references and payment status. All amounts are integer minor currency
// units.
type Order struct {
	ID            uuid.UUID `json:"id" db:"id"`
	OrderNumber   string    `json:"order_number" db:"order_number"`
	CustomerEmail string    `json:"customer_email" db:"customer_email"`

	// Amount
	TotalAmount int64  `json:"total_amount" db:"total_amount"`
	Currency    string `json:"currency" db:"currency"`

	// Payment references from the gateway. At least one must be present
	// before a refund can settle.
	PaymentIntentID *string `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	ChargeID        *string `json:"charge_id,omitempty" db:"charge_id"`

	PaymentStatus string `json:"payment_status" db:"payment_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPaymentReference reports whether the order carries a gateway reference
// usable for refund reconciliation.
func (o *Order) HasPaymentReference() bool {
	return (o.PaymentIntentID != nil && *o.PaymentIntentID != "") ||
		(o.ChargeID != nil && *o.ChargeID != "")
}

// =====================================================
// ORDER LINE ITEM ENTITY
// =====================================================
type OrderLineItem struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OrderID uuid.UUID `json:"order_id" db:"order_id"`

	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	InventoryID uuid.UUID `json:"inventory_id" db:"inventory_id"`

	Quantity   int   `json:"quantity" db:"quantity"`
	UnitAmount int64 `json:"unit_amount" db:"unit_amount"`
}
