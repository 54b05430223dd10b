package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// =====================================================
// CREATE REFUND REQUEST DTOs
// =====================================================

type CreateRefundLineItemDTO struct {
	OrderLineItemID uuid.UUID `json:"order_line_item_id"`
	Quantity        int       `json:"quantity"`
	Amount          int64     `json:"amount"`

	// Restock overrides the reason-based default when set.
	Restock *bool `json:"restock,omitempty"`
}

type CreateRefundRequestDTO struct {
	OrderID   uuid.UUID                 `json:"order_id"`
	Reason    string                    `json:"reason"`
	Note      *string                   `json:"note,omitempty"`
	Amount    int64                     `json:"amount"`
	LineItems []CreateRefundLineItemDTO `json:"line_items"`
}

func (r *CreateRefundRequestDTO) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.OrderID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.Reason, validation.Required, validation.By(validReason)),
		validation.Field(&r.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.LineItems, validation.Required, validation.Length(1, 0)),
	)
	if err != nil {
		return NewValidationError(err.Error())
	}

	var lineTotal int64
	for _, line := range r.LineItems {
		if line.OrderLineItemID == uuid.Nil {
			return NewValidationError("line item order_line_item_id is required")
		}
		if line.Quantity < 1 {
			return NewValidationError("line item quantity must be positive")
		}
		if line.Amount < 0 {
			return NewValidationError("line item amount must not be negative")
		}
		lineTotal += line.Amount
	}

	// Amount conservation: line amounts must sum to the request amount.
	if lineTotal != r.Amount {
		return NewValidationError("sum of line item amounts must equal the refund amount")
	}

	return nil
}

func notNilUUID(value interface{}) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_uuid", "must be a non-nil UUID")
	}
	return nil
}

func validReason(value interface{}) error {
	reason, ok := value.(string)
	if !ok || !IsValidReason(reason) {
		return validation.NewError("validation_reason", "must be a valid refund reason")
	}
	return nil
}

// CreateReturnRequestDTO is the customer-facing creation form: line items
// are computed server-side at full eligible quantity.
type CreateReturnRequestDTO struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
	Note    *string   `json:"note,omitempty"`
}

func (r *CreateReturnRequestDTO) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.OrderID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.Reason, validation.Required, validation.By(validReason)),
	)
	if err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// =====================================================
// REJECT / BULK DTOs
// =====================================================

type RejectRefundRequestDTO struct {
	Reason *string `json:"reason,omitempty"`
}

type BulkRefundRequestDTO struct {
	IDs    []uuid.UUID `json:"ids"`
	Reason *string     `json:"reason,omitempty"` // bulk reject only
}

func (r *BulkRefundRequestDTO) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, 100)),
	)
	if err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// BulkRefundResultDTO summarizes a batch transition: rows that passed the
// status precondition vs rows skipped because they were already processed.
type BulkRefundResultDTO struct {
	ProcessedCount int `json:"processed_count"`
	SkippedCount   int `json:"skipped_count"`
}

// =====================================================
// SETTLEMENT RESULT DTO
// =====================================================

const (
	SettlementOutcomeCompleted = "completed"
	SettlementOutcomePending   = "pending"
	SettlementOutcomeFailed    = "failed"
)

type SettlementResultDTO struct {
	RefundRequestID uuid.UUID  `json:"refund_request_id"`
	Outcome         string     `json:"outcome"`
	GatewayRefundID *string    `json:"gateway_refund_id,omitempty"`
	Message         string     `json:"message,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}
