// Package promotion decides which single promotion a cart receives.
//
// Resolution is a pure in-memory step: it reads promotion snapshots and never
// touches usage counters. The order writer performs exactly one guarded usage
// increment for the winner inside the checkout transaction.
package promotion

import (
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/shopspring/decimal"
)

// Source says where the applied promotion came from.
type Source string

const (
	SourceNone Source = "none"
	SourceAuto Source = "auto"
	SourceCode Source = "code"
)

// Candidates are the promotions considered for one cart.
type Candidates struct {
	// AutoApply holds active auto-apply promotions. Non auto-apply entries are ignored.
	AutoApply []model.Promotion
	// Code is the promotion matching the customer supplied code, if any.
	Code *model.Promotion
}

// Resolution is the outcome of resolving a cart's promotion.
type Resolution struct {
	Promotion *model.Promotion
	Source    Source
	Discount  decimal.Decimal
}

// Applied reports whether a promotion won.
func (r Resolution) Applied() bool {
	return r.Promotion != nil
}

// Resolve picks the promotion applied to a cart worth subtotal at time now.
//
// The auto candidate is the eligible auto-apply promotion with the largest
// discount, lower id on ties. The code candidate is the supplied code's
// promotion when eligible. When both exist the strictly larger discount wins
// and the code wins an exact tie. Candidates whose discount is zero never
// win. Promotions listed in excluded are skipped.
func Resolve(c Candidates, subtotal decimal.Decimal, now time.Time, excluded map[int64]bool) Resolution {
	auto, autoDiscount := bestAuto(c.AutoApply, subtotal, now, excluded)

	var code *model.Promotion
	codeDiscount := decimal.Zero
	if c.Code != nil && c.Code.Code != nil && !excluded[c.Code.ID] && Eligible(c.Code, subtotal, now) {
		codeDiscount = pricing.DiscountFor(c.Code, subtotal)
		if codeDiscount.IsPositive() {
			code = c.Code
		}
	}

	switch {
	case auto != nil && code != nil:
		if autoDiscount.GreaterThan(codeDiscount) {
			return Resolution{Promotion: auto, Source: SourceAuto, Discount: autoDiscount}
		}
		return Resolution{Promotion: code, Source: SourceCode, Discount: codeDiscount}
	case code != nil:
		return Resolution{Promotion: code, Source: SourceCode, Discount: codeDiscount}
	case auto != nil:
		return Resolution{Promotion: auto, Source: SourceAuto, Discount: autoDiscount}
	default:
		return Resolution{Source: SourceNone, Discount: decimal.Zero}
	}
}

func bestAuto(promos []model.Promotion, subtotal decimal.Decimal, now time.Time, excluded map[int64]bool) (*model.Promotion, decimal.Decimal) {
	var best *model.Promotion
	bestDiscount := decimal.Zero

	for i := range promos {
		p := &promos[i]
		if !p.AutoApply || excluded[p.ID] || !Eligible(p, subtotal, now) {
			continue
		}

		discount := pricing.DiscountFor(p, subtotal)
		if !discount.IsPositive() {
			continue
		}

		if best == nil ||
			discount.GreaterThan(bestDiscount) ||
			(discount.Equal(bestDiscount) && p.ID < best.ID) {
			best = p
			bestDiscount = discount
		}
	}

	return best, bestDiscount
}
