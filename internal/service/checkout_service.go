package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/audit"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/promotion"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CheckoutDeps wires a checkout service. Writer, Audit, Metrics and Clock
// are optional.
type CheckoutDeps struct {
	Catalog    repository.CatalogRepository
	Promotions repository.PromotionRepository
	Orders     repository.OrderRepository
	Writer     OrderWriter
	Audit      audit.Logger
	Metrics    *metrics.CheckoutMetrics
	Logger     zerolog.Logger
	Clock      func() time.Time
}

type checkoutService struct {
	catalog    repository.CatalogRepository
	promotions repository.PromotionRepository
	orders     repository.OrderRepository
	writer     OrderWriter
	audit      audit.Logger
	metrics    *metrics.CheckoutMetrics
	logger     zerolog.Logger
	clock      func() time.Time
}

// NewCheckoutService creates the checkout orchestrator.
func NewCheckoutService(deps CheckoutDeps) (CheckoutService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if deps.Promotions == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}

	writer := deps.Writer
	if writer == nil {
		writer = NewOrderWriter(deps.Orders, deps.Catalog, deps.Promotions, deps.Logger)
	}
	auditLogger := deps.Audit
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &checkoutService{
		catalog:    deps.Catalog,
		promotions: deps.Promotions,
		orders:     deps.Orders,
		writer:     writer,
		audit:      auditLogger,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With().Str("service", "checkout").Logger(),
		clock:      clock,
	}, nil
}

// Checkout validates the cart, reads authoritative prices and stock, resolves
// the single best promotion and hands the priced draft to the order writer.
// When the winning promotion is exhausted by a concurrent checkout before
// commit, resolution runs again without it.
func (s *checkoutService) Checkout(ctx context.Context, userID int64, req *model.CheckoutRequest, idempotencyKey string) (result *CheckoutResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(checkoutOutcome(result, err), time.Since(start))
	}()

	if userID <= 0 {
		return nil, model.ErrUnauthorised
	}
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := validateStruct(req); err != nil {
		s.logger.Debug().Err(err).Int64("user_id", userID).Msg("checkout request rejected")
		return nil, err
	}

	key, err := normalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return nil, err
	}
	if key != nil {
		existing, err := s.orders.GetByIdempotencyKey(ctx, userID, *key)
		if err != nil {
			return nil, fmt.Errorf("failed to look up idempotent order: %w", err)
		}
		if existing != nil {
			s.logger.Info().Int64("order_id", existing.ID).Int64("user_id", userID).Msg("idempotent checkout replayed")
			return &CheckoutResult{Order: existing, Replayed: true}, nil
		}
	}

	quantities := model.Quantities(req.Items)
	keys := model.SortedKeys(quantities)

	catalog, err := s.catalog.GetEntries(ctx, keys)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if available := catalog[k].AvailableStock; available < quantities[k] {
			if replay := s.replayCommitted(ctx, userID, key); replay != nil {
				return replay, nil
			}
			s.logger.Info().Stringer("key", k).Int("requested", quantities[k]).Int("available", available).Msg("insufficient stock")
			return nil, model.NewInsufficientStockError(k, quantities[k], available)
		}
	}

	subtotal, err := pricing.Subtotal(req.Items, catalog)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, line := range req.Items {
		unitPrice := catalog[line.Key()].UnitPrice
		items[i] = model.OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: pricing.LineTotal(unitPrice, line.Quantity),
		}
	}

	now := s.clock()
	candidates, err := s.loadCandidates(ctx, req.PromotionCode, now)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]bool)
	maxAttempts := len(candidates.AutoApply) + 2

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resolution := promotion.Resolve(candidates, subtotal, now, excluded)

		draft := &OrderDraft{
			UserID:          userID,
			Items:           items,
			Subtotal:        subtotal,
			Discount:        resolution.Discount,
			Final:           pricing.FinalAmount(subtotal, resolution.Discount),
			Promotion:       resolution.Promotion,
			ResolvedAt:      now,
			ShippingAddress: req.ShippingAddress,
			Town:            req.Town,
			PaymentMethod:   req.PaymentMethod,
			IdempotencyKey:  key,
		}

		order, err := s.writer.Write(ctx, draft)
		switch {
		case err == nil:
			s.recordSuccess(ctx, order, resolution)
			return &CheckoutResult{Order: order}, nil

		case errors.Is(err, ErrPromotionExhausted) && resolution.Applied():
			s.logger.Info().
				Int64("promotion_id", resolution.Promotion.ID).
				Int("attempt", attempt).
				Msg("promotion exhausted during checkout, re-resolving")
			excluded[resolution.Promotion.ID] = true
			s.metrics.IncRetry()

		default:
			// A duplicate request can lose to the first one on the unique
			// index or on the last units of stock.
			if replay := s.replayCommitted(ctx, userID, key); replay != nil {
				return replay, nil
			}
			var domainErr *model.DomainError
			if !errors.As(err, &domainErr) {
				s.logger.Error().Err(err).Int64("user_id", userID).Msg("checkout failed")
			}
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to create order: promotion resolution did not settle after %d attempts", maxAttempts)
}

// replayCommitted returns the order already committed under key, or nil
// when there is no key, no such order, or the lookup fails.
func (s *checkoutService) replayCommitted(ctx context.Context, userID int64, key *string) *CheckoutResult {
	if key == nil {
		return nil
	}

	existing, err := s.orders.GetByIdempotencyKey(ctx, userID, *key)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to look up idempotent order after checkout failure")
		return nil
	}
	if existing == nil {
		return nil
	}

	s.logger.Info().Int64("order_id", existing.ID).Int64("user_id", userID).Msg("idempotent checkout replayed")
	return &CheckoutResult{Order: existing, Replayed: true}
}

// loadCandidates fetches auto-apply promotions and the supplied code
// concurrently. An unknown code simply yields no code candidate.
func (s *checkoutService) loadCandidates(ctx context.Context, code *string, now time.Time) (promotion.Candidates, error) {
	var candidates promotion.Candidates

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		autos, err := s.promotions.FindActiveAutoApply(gctx, now)
		if err != nil {
			return fmt.Errorf("failed to load promotions: %w", err)
		}
		candidates.AutoApply = autos
		return nil
	})

	if code != nil && model.NormalizeCode(*code) != "" {
		g.Go(func() error {
			p, err := s.promotions.FindByCode(gctx, *code)
			if err != nil {
				return fmt.Errorf("failed to load promotion code: %w", err)
			}
			if p == nil {
				s.logger.Debug().Str("code", model.NormalizeCode(*code)).Msg("unknown promotion code ignored")
			}
			candidates.Code = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return promotion.Candidates{}, err
	}

	return candidates, nil
}

func (s *checkoutService) recordSuccess(ctx context.Context, order *model.Order, resolution promotion.Resolution) {
	details := map[string]any{
		"subtotal":        order.Subtotal.StringFixed(2),
		"discount_amount": order.DiscountAmount.StringFixed(2),
		"final_amount":    order.FinalAmount.StringFixed(2),
		"item_count":      len(order.Items),
		"promotion":       string(resolution.Source),
	}
	if resolution.Applied() {
		details["promotion_id"] = resolution.Promotion.ID
		s.metrics.IncPromotionApplied(string(resolution.Source))
	}

	userID := order.UserID
	s.audit.Log(ctx, audit.Entry{
		UserID:   &userID,
		Action:   audit.ActionOrderCreated,
		Entity:   "order",
		EntityID: strconv.FormatInt(order.ID, 10),
		Details:  details,
	})

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Str("final_amount", order.FinalAmount.StringFixed(2)).
		Str("promotion", string(resolution.Source)).
		Msg("order created successfully")
}

func checkoutOutcome(result *CheckoutResult, err error) string {
	switch {
	case err == nil && result != nil && result.Replayed:
		return metrics.OutcomeReplayed
	case err == nil:
		return metrics.OutcomeSuccess
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}
