package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/promotion"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// promotionService implements PromotionService.
type promotionService struct {
	catalog    repository.CatalogRepository
	promotions repository.PromotionRepository
	logger     zerolog.Logger
	clock      func() time.Time
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(catalog repository.CatalogRepository, promotions repository.PromotionRepository, logger zerolog.Logger) PromotionService {
	return &promotionService{
		catalog:    catalog,
		promotions: promotions,
		logger:     logger.With().Str("service", "promotion").Logger(),
		clock:      time.Now,
	}
}

// Validate quotes a code against the cart's authoritative subtotal. Unlike
// checkout, an unknown or ineligible code is reported to the caller.
func (s *promotionService) Validate(ctx context.Context, req *model.PromotionValidationRequest) (*model.PromotionQuote, error) {
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	code := model.NormalizeCode(req.Code)
	if code == "" {
		return nil, model.NewValidationError("code is required")
	}

	catalog, err := s.catalog.GetEntries(ctx, model.SortedKeys(model.Quantities(req.Items)))
	if err != nil {
		return nil, err
	}

	subtotal, err := pricing.Subtotal(req.Items, catalog)
	if err != nil {
		return nil, err
	}

	p, err := s.promotions.FindByCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to look up promotion")
		return nil, fmt.Errorf("failed to validate promotion: %w", err)
	}
	if p == nil {
		return nil, model.NewPromotionInvalidError("promotion not found")
	}

	if err := promotion.CheckEligibility(p, subtotal, s.clock()); err != nil {
		s.logger.Debug().Str("code", code).Err(err).Msg("promotion not eligible")
		return nil, model.NewPromotionInvalidError(err.Error())
	}

	discount := pricing.DiscountFor(p, subtotal)

	return &model.PromotionQuote{
		PromotionID:    p.ID,
		Code:           code,
		Description:    p.Description,
		DiscountType:   p.DiscountType,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalAmount:    pricing.FinalAmount(subtotal, discount),
	}, nil
}
