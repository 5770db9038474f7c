package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrPromotionExhausted is returned by the order writer when the chosen
// promotion lost its last usage slot, or its eligibility, between resolution
// and commit. Nothing was written.
var ErrPromotionExhausted = errors.New("promotion exhausted before commit")

// OrderDraft is a fully priced order that has not been persisted yet.
type OrderDraft struct {
	UserID          int64
	Items           []model.OrderItem
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Final           decimal.Decimal
	Promotion       *model.Promotion
	ResolvedAt      time.Time
	ShippingAddress string
	Town            string
	PaymentMethod   string
	IdempotencyKey  *string
}

// OrderWriter persists a draft atomically.
type OrderWriter interface {
	Write(ctx context.Context, draft *OrderDraft) (*model.Order, error)
}

type orderWriter struct {
	orders     repository.OrderRepository
	catalog    repository.CatalogRepository
	promotions repository.PromotionRepository
	logger     zerolog.Logger
}

// NewOrderWriter creates an order writer over the given repositories.
func NewOrderWriter(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	promotions repository.PromotionRepository,
	logger zerolog.Logger,
) OrderWriter {
	return &orderWriter{
		orders:     orders,
		catalog:    catalog,
		promotions: promotions,
		logger:     logger.With().Str("service", "order_writer").Logger(),
	}
}

// Write decrements stock, consumes the promotion's usage slot and inserts the
// order, its items and its first event in a single transaction. Stock rows
// are locked in key order so concurrent checkouts cannot deadlock.
func (w *orderWriter) Write(ctx context.Context, draft *OrderDraft) (order *model.Order, err error) {
	tx, err := w.orders.BeginTx(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				w.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	quantities := make(map[model.CatalogKey]int, len(draft.Items))
	for _, item := range draft.Items {
		quantities[item.Key()] += item.Quantity
	}

	for _, key := range model.SortedKeys(quantities) {
		var ok bool
		ok, err = w.catalog.DecrementStock(ctx, tx, key, quantities[key])
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if !ok {
			w.logger.Info().Stringer("key", key).Int("quantity", quantities[key]).Msg("stock ran out before commit")
			err = model.NewDomainError(model.ErrCodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s: requested %d", key, quantities[key]))
			return nil, err
		}
	}

	if draft.Promotion != nil {
		var ok bool
		ok, err = w.promotions.IncrementUsage(ctx, tx, draft.Promotion.ID, draft.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if !ok {
			err = ErrPromotionExhausted
			return nil, err
		}
	}

	paymentMethod := draft.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.DefaultPaymentMethod
	}

	order = &model.Order{
		UserID:          draft.UserID,
		Subtotal:        draft.Subtotal,
		DiscountAmount:  draft.Discount,
		FinalAmount:     draft.Final,
		Status:          model.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: draft.ShippingAddress,
		Town:            draft.Town,
		IdempotencyKey:  draft.IdempotencyKey,
	}
	if draft.Promotion != nil {
		id := draft.Promotion.ID
		order.PromotionID = &id
		order.PromotionCode = draft.Promotion.Code
	}

	if err = w.orders.CreateOrder(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := slices.Clone(draft.Items)
	for i := range items {
		items[i].OrderID = order.ID
	}

	if err = w.orders.CreateOrderItems(ctx, tx, items); err != nil {
		w.logger.Error().
			Err(err).
			Int64("order_id", order.ID).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	event := &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusPending, Notes: "Order created"}
	if err = w.orders.CreateOrderEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		w.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order.Items = items

	return order, nil
}
