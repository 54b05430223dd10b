package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/order/model"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepoInterface {
	return &orderRepository{pool: pool}
}

// GetByID gets order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `
		SELECT
			id, order_number, customer_email,
			total_amount, currency,
			payment_intent_id, charge_id, payment_status,
			created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order := &model.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerEmail,
		&order.TotalAmount,
		&order.Currency,
		&order.PaymentIntentID,
		&order.ChargeID,
		&order.PaymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// GetLineItems gets all line items of an order
func (r *orderRepository) GetLineItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderLineItem, error) {
	query := `
		SELECT id, order_id, product_id, inventory_id, quantity, unit_amount
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order line items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderLineItem
	for rows.Next() {
		var item model.OrderLineItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.InventoryID,
			&item.Quantity,
			&item.UnitAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// UpdatePaymentStatusTx updates order payment status within transaction
func (r *orderRepository) UpdatePaymentStatusTx(
	ctx context.Context,
	tx pgx.Tx,
	orderID uuid.UUID,
	status string,
) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}
