package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"storefront/internal/audit"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orders     repository.OrderRepository
	catalog    repository.CatalogRepository
	promotions repository.PromotionRepository
	audit      audit.Logger
	logger     zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	promotions repository.PromotionRepository,
	auditLogger audit.Logger,
	logger zerolog.Logger,
) OrderService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &orderService{
		orders:     orders,
		catalog:    catalog,
		promotions: promotions,
		audit:      auditLogger,
		logger:     logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order by its ID with items and events.
func (s *orderService) GetByID(ctx context.Context, actor model.Actor, id int64) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	// Other customers' orders are reported as missing rather than forbidden.
	if order == nil || (!actor.IsAdmin() && order.UserID != actor.UserID) {
		s.logger.Debug().Int64("order_id", id).Int64("user_id", actor.UserID).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// List retrieves the actor's orders with pagination.
func (s *orderService) List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, error) {
	limit, offset = clampPage(limit, offset)

	orders, err := s.orders.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", actor.UserID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus applies a workflow transition and appends an order event.
// Cancelling an order returns its stock and releases its promotion slot.
func (s *orderService) UpdateStatus(ctx context.Context, actor model.Actor, id int64, update *model.StatusUpdate) (result *model.Order, err error) {
	if !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if update == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := validateStruct(update); err != nil {
		return nil, err
	}
	if !update.Status.IsValid() {
		return nil, model.NewValidationError("status must be one of: pending, processing, shipped, delivered, cancelled")
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orders.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	if !order.Status.CanTransitionTo(update.Status) {
		err = model.NewInvalidStatusTransitionError(order.Status, update.Status)
		return nil, err
	}

	if err = s.orders.UpdateStatus(ctx, tx, id, update.Status, update.TrackingNumber); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	event := &model.OrderEvent{OrderID: id, Status: update.Status, Notes: update.Notes}
	if err = s.orders.CreateOrderEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if update.Status == model.OrderStatusCancelled {
		if err = s.releaseOrder(ctx, tx, order); err != nil {
			return nil, fmt.Errorf("failed to cancel order: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	adminID := actor.UserID
	s.audit.Log(ctx, audit.Entry{
		UserID:   &adminID,
		Action:   audit.ActionOrderStatusChanged,
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Details: map[string]any{
			"from": string(order.Status),
			"to":   string(update.Status),
		},
	})

	s.logger.Info().
		Int64("order_id", id).
		Str("from", string(order.Status)).
		Str("to", string(update.Status)).
		Msg("order status updated")

	updated, getErr := s.orders.GetByID(ctx, id)
	if getErr != nil {
		return nil, fmt.Errorf("failed to reload order: %w", getErr)
	}
	return updated, nil
}

func (s *orderService) releaseOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	quantities := make(map[model.CatalogKey]int, len(order.Items))
	for _, item := range order.Items {
		quantities[item.Key()] += item.Quantity
	}

	for _, key := range model.SortedKeys(quantities) {
		if err := s.catalog.RestoreStock(ctx, tx, key, quantities[key]); err != nil {
			return err
		}
	}

	if order.PromotionID == nil {
		return nil
	}

	released, err := s.promotions.DecrementUsage(ctx, tx, *order.PromotionID)
	if err != nil {
		return err
	}
	if !released {
		s.logger.Warn().
			Int64("order_id", order.ID).
			Int64("promotion_id", *order.PromotionID).
			Msg("promotion usage already at zero on cancel")
	}

	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
