package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is how a promotion's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Promotion is a discount rule. Code is nil only for auto-apply promotions.
type Promotion struct {
	ID             int64               `json:"id"`
	Code           *string             `json:"code,omitempty"`
	Description    string              `json:"description"`
	AutoApply      bool                `json:"autoApply"`
	Active         bool                `json:"active"`
	DiscountType   DiscountType        `json:"discountType"`
	DiscountValue  decimal.Decimal     `json:"discountValue"`
	MaxDiscount    decimal.NullDecimal `json:"maxDiscount"`
	MinOrderAmount decimal.NullDecimal `json:"minOrderAmount"`
	StartsAt       *time.Time          `json:"startsAt,omitempty"`
	EndsAt         *time.Time          `json:"endsAt,omitempty"`
	UsageLimit     *int                `json:"usageLimit,omitempty"`
	UsageCount     int                 `json:"usageCount"`
	Stackable      bool                `json:"stackable"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// CodeValue returns the promotion code or an empty string.
func (p *Promotion) CodeValue() string {
	if p == nil || p.Code == nil {
		return ""
	}
	return *p.Code
}

// NormalizeCode canonicalises a customer supplied promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromotionValidationRequest is the cart-time promotion check payload.
type PromotionValidationRequest struct {
	Code  string     `json:"code" validate:"required,max=64"`
	Items []LineItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// PromotionQuote is the discount a code would give the supplied cart.
type PromotionQuote struct {
	PromotionID    int64           `json:"promotion_id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountType   DiscountType    `json:"discount_type"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}
