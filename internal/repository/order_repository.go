package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, user_id, subtotal, discount_amount, final_amount, promotion_id,
	promotion_code, status, payment_method, shipping_address, town,
	tracking_number, idempotency_key, created_at, updated_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.FinalAmount,
		&o.PromotionID,
		&o.PromotionCode,
		&o.Status,
		&o.PaymentMethod,
		&o.ShippingAddress,
		&o.Town,
		&o.TrackingNumber,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			user_id, subtotal, discount_amount, final_amount, promotion_id,
			promotion_code, status, payment_method, shipping_address, town,
			idempotency_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.UserID,
		order.Subtotal,
		order.DiscountAmount,
		order.FinalAmount,
		order.PromotionID,
		order.PromotionCode,
		order.Status,
		order.PaymentMethod,
		order.ShippingAddress,
		order.Town,
		order.IdempotencyKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_user_idempotency_key") {
			r.logger.Info().
				Int64("user_id", order.UserID).
				Msg("duplicate idempotency key")
			return ErrDuplicateOrder
		}
		r.logger.Error().
			Err(err).
			Int64("user_id", order.UserID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.OrderID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice, item.LineTotal)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// CreateOrderEvent appends a status event within the provided transaction.
func (r *orderRepository) CreateOrderEvent(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	query := `
		INSERT INTO order_events (order_id, status, notes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := tx.QueryRow(ctx, query, event.OrderID, event.Status, event.Notes).Scan(&event.ID, &event.CreatedAt); err != nil {
		r.logger.Error().Err(err).Int64("order_id", event.OrderID).Msg("failed to create order event")
		return fmt.Errorf("failed to create order event: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID along with its items and events.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.getOne(ctx, r.pool, query, id)
	if err != nil || order == nil {
		return nil, err
	}

	if order.Items, err = r.getItems(ctx, r.pool, order.ID); err != nil {
		return nil, err
	}
	if order.Events, err = r.getEvents(ctx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByIdempotencyKey retrieves the order a user placed with key.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`

	order, err := r.getOne(ctx, r.pool, query, userID, key)
	if err != nil || order == nil {
		return nil, err
	}

	if order.Items, err = r.getItems(ctx, r.pool, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser retrieves a page of a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// GetForUpdate locks the order row until tx ends.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := r.getOne(ctx, tx, query, id)
	if err != nil || order == nil {
		return nil, err
	}

	if order.Items, err = r.getItems(ctx, tx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateStatus sets the order status within tx.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus, trackingNumber *string) error {
	query := `
		UPDATE orders
		SET status = $2, tracking_number = COALESCE($3, tracking_number), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, status, trackingNumber)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", id).Str("status", string(status)).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) getOne(ctx context.Context, q querier, query string, args ...any) (*model.Order, error) {
	var order model.Order
	if err := scanOrder(q.QueryRow(ctx, query, args...), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) getItems(ctx context.Context, q querier, orderID int64) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", orderID).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) getEvents(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	query := `
		SELECT id, order_id, status, notes, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order events")
		return nil, fmt.Errorf("failed to query order events: %w", err)
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var e model.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Notes, &e.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order event row")
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order event rows")
		return nil, fmt.Errorf("error iterating order events: %w", err)
	}

	return events, nil
}
