package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-backend/internal/domains/inventory/model"
)

// InventoryRepoInterface is the stock surface the refund pipeline needs.
type InventoryRepoInterface interface {
	// GetByID returns the inventory record or model.ErrInventoryNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Inventory, error)

	// IncrementAvailableTx adds quantity back to sellable stock inside the
	// provided transaction. A monotonic addition: no lock needed beyond the
	// enclosing transaction.
	IncrementAvailableTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error
}
