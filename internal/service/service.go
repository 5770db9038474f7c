package service

import (
	"context"

	"storefront/internal/model"
)

// ProductService defines operations for browsing the catalogue.
type ProductService interface {
	// GetAll retrieves active products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single active product with its variants.
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// CheckoutResult is a committed order and whether it was an idempotent replay.
type CheckoutResult struct {
	Order    *model.Order
	Replayed bool
}

// CheckoutService turns a cart into a committed order.
type CheckoutService interface {
	// Checkout prices the cart from the catalogue, applies the best eligible
	// promotion and commits the order. idempotencyKey may be empty.
	Checkout(ctx context.Context, userID int64, req *model.CheckoutRequest, idempotencyKey string) (*CheckoutResult, error)
}

// OrderService defines read and fulfilment operations on committed orders.
type OrderService interface {
	// GetByID retrieves an order with items and events. Customers only see their own orders.
	GetByID(ctx context.Context, actor model.Actor, id int64) (*model.Order, error)

	// List retrieves the actor's orders, newest first.
	List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, error)

	// UpdateStatus moves an order along the fulfilment workflow. Admin only.
	UpdateStatus(ctx context.Context, actor model.Actor, id int64, update *model.StatusUpdate) (*model.Order, error)
}

// PromotionService answers cart-time promotion questions without consuming usage.
type PromotionService interface {
	// Validate quotes the discount code would give the cart, or explains why it does not apply.
	Validate(ctx context.Context, req *model.PromotionValidationRequest) (*model.PromotionQuote, error)
}
