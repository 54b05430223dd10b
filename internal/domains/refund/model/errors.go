package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrRefundNotFound    = errors.New("refund request not found")
	ErrRefundConflict    = errors.New("refund status changed concurrently")
	ErrAlreadyProcessed  = errors.New("refund already processed")
	ErrNotApproved       = errors.New("refund is not approved")
	ErrNoChargeReference = errors.New("order has no charge reference")
	ErrCannotCancel      = errors.New("refund cannot be cancelled in its current status")
	ErrGatewayFailed     = errors.New("gateway refund failed")
)

// =====================================================
// CUSTOM REFUND ERROR
// =====================================================

type RefundError struct {
	Code    string
	Message string
	Err     error
}

func (e *RefundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RefundError) Unwrap() error {
	return e.Err
}

// NewRefundError creates a new refund error
func NewRefundError(code, message string, err error) *RefundError {
	return &RefundError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewRefundNotFoundError(id string) *RefundError {
	return NewRefundError(
		ErrCodeRefundNotFound,
		fmt.Sprintf("Refund request not found: %s", id),
		ErrRefundNotFound,
	)
}

func NewRefundConflictError(status string) *RefundError {
	return NewRefundError(
		ErrCodeRefundConflict,
		fmt.Sprintf("Refund status is '%s', transition not allowed", status),
		ErrRefundConflict,
	)
}

func NewAlreadyProcessedError(id string) *RefundError {
	return NewRefundError(
		ErrCodeAlreadyProcessed,
		fmt.Sprintf("Refund %s is already completed", id),
		ErrAlreadyProcessed,
	)
}

func NewNotApprovedError(status string) *RefundError {
	return NewRefundError(
		ErrCodeNotApproved,
		fmt.Sprintf("Refund status is '%s', must be 'approved' to settle", status),
		ErrNotApproved,
	)
}

func NewNoChargeReferenceError(orderID string) *RefundError {
	return NewRefundError(
		ErrCodeNoChargeReference,
		fmt.Sprintf("Order %s has neither a payment intent nor a charge reference", orderID),
		ErrNoChargeReference,
	)
}

func NewValidationError(message string) *RefundError {
	return NewRefundError(ErrCodeValidation, message, nil)
}

func NewQuantityExceededError(orderLineItemID string, requested, remaining int) *RefundError {
	return NewRefundError(
		ErrCodeQuantityExceeded,
		fmt.Sprintf("Line item %s: requested quantity %d exceeds refundable quantity %d",
			orderLineItemID, requested, remaining),
		nil,
	)
}

func NewAmountExceededError(requested, remaining int64) *RefundError {
	return NewRefundError(
		ErrCodeAmountExceeded,
		fmt.Sprintf("Refund amount %d exceeds remaining refundable balance %d", requested, remaining),
		nil,
	)
}
