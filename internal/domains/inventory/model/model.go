package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInventoryNotFound = errors.New("inventory record not found")

// Inventory tracks sellable stock for one SKU.
type Inventory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	SKU       string    `json:"sku" db:"sku"`

	AvailableQuantity int `json:"available_quantity" db:"available_quantity"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
