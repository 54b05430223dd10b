package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/shared"
)

// Client enqueues background tasks. Enqueueing is fast (single redis
// round-trip); callers treat failures as non-fatal.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr, redisPassword string, redisDB int) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRefundApprovedEmail dispatches the approval notification.
func (c *Client) EnqueueRefundApprovedEmail(payload model.RefundApprovedEmailPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeRefundApprovedEmail, data)
	_, err = c.client.Enqueue(task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue refund approved email: %w", err)
	}
	return nil
}

// EnqueueRefundRejectedEmail dispatches the rejection notification.
func (c *Client) EnqueueRefundRejectedEmail(payload model.RefundRejectedEmailPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeRefundRejectedEmail, data)
	_, err = c.client.Enqueue(task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue refund rejected email: %w", err)
	}
	return nil
}
