package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/inventory/model"
)

type inventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) InventoryRepoInterface {
	return &inventoryRepository{pool: pool}
}

// GetByID gets inventory record by ID
func (r *inventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Inventory, error) {
	query := `
		SELECT id, product_id, sku, available_quantity, updated_at
		FROM inventories
		WHERE id = $1
	`

	inv := &model.Inventory{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID,
		&inv.ProductID,
		&inv.SKU,
		&inv.AvailableQuantity,
		&inv.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return inv, nil
}

// IncrementAvailableTx restocks quantity within transaction
func (r *inventoryRepository) IncrementAvailableTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	quantity int,
) error {
	query := `
		UPDATE inventories
		SET available_quantity = available_quantity + $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to increment inventory: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrInventoryNotFound
	}

	return nil
}
