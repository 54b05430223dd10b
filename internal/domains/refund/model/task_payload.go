package model

import "github.com/google/uuid"

// =====================================================
// ASYNQ TASK PAYLOADS
// =====================================================

type RefundApprovedEmailPayload struct {
	RefundRequestID uuid.UUID `json:"refund_request_id"`
	Email           string    `json:"email"`
	OrderNumber     string    `json:"order_number"`
	Amount          int64     `json:"amount"`
}

type RefundRejectedEmailPayload struct {
	RefundRequestID uuid.UUID `json:"refund_request_id"`
	Email           string    `json:"email"`
	OrderNumber     string    `json:"order_number"`
	Reason          string    `json:"reason"`
}
