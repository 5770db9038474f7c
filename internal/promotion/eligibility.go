package promotion

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Reasons a promotion does not apply to a cart.
var (
	ErrInactive          = errors.New("promotion is not active")
	ErrNotStarted        = errors.New("promotion has not started yet")
	ErrExpired           = errors.New("promotion has expired")
	ErrUsageLimitReached = errors.New("promotion usage limit reached")
	ErrMinimumNotMet     = errors.New("order total is below the promotion minimum")
)

// CheckEligibility returns nil when p applies to a cart worth subtotal at
// time now, or the first reason it does not.
func CheckEligibility(p *model.Promotion, subtotal decimal.Decimal, now time.Time) error {
	if !p.Active {
		return ErrInactive
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return ErrNotStarted
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return ErrExpired
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return ErrUsageLimitReached
	}
	if p.MinOrderAmount.Valid && subtotal.LessThan(p.MinOrderAmount.Decimal) {
		return fmt.Errorf("%w of %s", ErrMinimumNotMet, p.MinOrderAmount.Decimal.StringFixed(2))
	}
	return nil
}

// Eligible reports whether p applies to a cart worth subtotal at time now.
func Eligible(p *model.Promotion, subtotal decimal.Decimal, now time.Time) bool {
	return CheckEligibility(p, subtotal, now) == nil
}
