package handlers

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/infrastructure/email"
)

// RefundApprovedEmailHandler sends the approval notification.
// A malformed payload is skipped; transport errors are retried by asynq.
func RefundApprovedEmailHandler(emailSvc email.EmailService) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p model.RefundApprovedEmailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return asynq.SkipRetry
		}

		return emailSvc.SendRefundApprovedEmail(ctx, email.RefundApprovedData{
			Email:       p.Email,
			OrderNumber: p.OrderNumber,
			Amount:      p.Amount,
		})
	}
}

// RefundRejectedEmailHandler sends the rejection notification.
func RefundRejectedEmailHandler(emailSvc email.EmailService) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p model.RefundRejectedEmailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return asynq.SkipRetry
		}

		return emailSvc.SendRefundRejectedEmail(ctx, email.RefundRejectedData{
			Email:       p.Email,
			OrderNumber: p.OrderNumber,
			Reason:      p.Reason,
		})
	}
}
