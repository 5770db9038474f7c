package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalogue. Price and Stock apply
// when the product is ordered without a variant.
type Product struct {
	ID          int64            `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description" db:"description"`
	Category    string           `json:"category" db:"category"`
	Price       decimal.Decimal  `json:"price" db:"price"`
	Stock       int              `json:"stock" db:"stock"`
	Active      bool             `json:"active" db:"active"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	Variants    []ProductVariant `json:"variants,omitempty"`
}

// ProductVariant is a purchasable option of a product with its own price and stock.
type ProductVariant struct {
	ID        int64           `json:"id" db:"id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	SKU       *string         `json:"sku,omitempty" db:"sku"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	Active    bool            `json:"active" db:"active"`
}
