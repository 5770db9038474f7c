// Package pricing computes order amounts from authoritative catalog prices.
// All functions are pure.
package pricing

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

var hundred = decimal.NewFromInt(100)

// LineTotal returns unitPrice multiplied by quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums catalog price times quantity for every line. A line whose key
// is missing from catalog yields ProductNotFound.
func Subtotal(items []model.LineItem, catalog map[model.CatalogKey]model.CatalogEntry) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		entry, ok := catalog[item.Key()]
		if !ok {
			return decimal.Zero, model.NewProductNotFoundError(item.Key())
		}
		total = total.Add(LineTotal(entry.UnitPrice, item.Quantity))
	}
	return total.Round(moneyScale), nil
}

// DiscountFor returns the discount p gives on subtotal, rounded to cents and
// clamped to [0, subtotal]. Percentage discounts are capped by MaxDiscount
// when it is set. A nil promotion gives no discount.
func DiscountFor(p *model.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	if p == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch p.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal.Mul(p.DiscountValue).Div(hundred)
		if p.MaxDiscount.Valid {
			discount = decimal.Min(discount, p.MaxDiscount.Decimal)
		}
	case model.DiscountFixed:
		discount = p.DiscountValue
	default:
		return decimal.Zero
	}

	discount = discount.Round(moneyScale)
	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal)
}

// FinalAmount returns subtotal minus discount, never below zero.
func FinalAmount(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}
