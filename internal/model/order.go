package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the fulfilment workflow allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const DefaultPaymentMethod = "cod"

// Order represents a committed checkout.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Subtotal        decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	PromotionID     *int64          `json:"promotion_id"`
	PromotionCode   *string         `json:"promotion_code"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress string          `json:"shipping_address"`
	Town            string          `json:"town"`
	TrackingNumber  *string         `json:"tracking_number,omitempty"`
	IdempotencyKey  *string         `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items"`
	Events          []OrderEvent    `json:"events,omitempty"`
}

// OrderItem represents a line item in an order. UnitPrice is the price
// captured at checkout and is never recomputed.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (i OrderItem) Key() CatalogKey {
	k := CatalogKey{ProductID: i.ProductID}
	if i.VariantID != nil {
		k.VariantID = *i.VariantID
	}
	return k
}

// OrderEvent is an append-only status history entry.
type OrderEvent struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
}

// LineItem is one requested cart line. Any client supplied price is ignored.
type LineItem struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	VariantID *int64 `json:"variantId,omitempty" validate:"omitempty,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=1000"`
}

func (li LineItem) Key() CatalogKey {
	k := CatalogKey{ProductID: li.ProductID}
	if li.VariantID != nil {
		k.VariantID = *li.VariantID
	}
	return k
}

// CheckoutRequest represents the request payload for placing an order.
type CheckoutRequest struct {
	Items           []LineItem `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingAddress string     `json:"shippingAddress" validate:"required,max=500"`
	Town            string     `json:"town" validate:"required,max=100"`
	PromotionCode   *string    `json:"promotionCode,omitempty" validate:"omitempty,max=64"`
	PaymentMethod   string     `json:"paymentMethod,omitempty" validate:"omitempty,oneof=cod card bank_transfer"`
}

// StatusUpdate is an admin request to move an order through fulfilment.
type StatusUpdate struct {
	Status         OrderStatus `json:"status" validate:"required"`
	Notes          string      `json:"notes" validate:"max=500"`
	TrackingNumber *string     `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
}
