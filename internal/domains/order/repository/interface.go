package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-backend/internal/domains/order/model"
)

// OrderRepoInterface is the narrow order-store surface the refund pipeline
// consumes: read order + line items, update aggregate payment status.
type OrderRepoInterface interface {
	// GetByID returns the order or model.ErrOrderNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetLineItems returns all line items of an order.
	GetLineItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderLineItem, error)

	// UpdatePaymentStatusTx updates the order payment status within the
	// provided transaction.
	UpdatePaymentStatusTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string) error
}
