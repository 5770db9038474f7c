package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateOrder is returned when an order with the same user and
// idempotency key has already been committed.
var ErrDuplicateOrder = errors.New("order with this idempotency key already exists")

// CatalogRepository reads authoritative prices and stock and adjusts stock.
type CatalogRepository interface {
	// GetEntries returns the current catalog entry for every key. It fails with
	// model.ErrProductNotFound or model.ErrProductInactive when a key does not
	// resolve to an active product or variant.
	GetEntries(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error)

	// DecrementStock removes quantity units within tx. It returns false and
	// changes nothing when fewer than quantity units remain.
	DecrementStock(ctx context.Context, tx pgx.Tx, key model.CatalogKey, quantity int) (bool, error)

	// RestoreStock returns quantity units within tx.
	RestoreStock(ctx context.Context, tx pgx.Tx, key model.CatalogKey, quantity int) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves active products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves an active product and its active variants.
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// PromotionRepository reads promotions and maintains their usage counters.
type PromotionRepository interface {
	// GetByID retrieves a promotion by id.
	GetByID(ctx context.Context, id int64) (*model.Promotion, error)

	// FindByCode retrieves the promotion with the given code, or nil.
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)

	// FindActiveAutoApply lists auto-apply promotions that are active, inside
	// their window at now and below their usage limit, ordered by id.
	FindActiveAutoApply(ctx context.Context, now time.Time) ([]model.Promotion, error)

	// IncrementUsage consumes one usage slot within tx. It returns false when
	// the promotion is no longer active, outside its window at now, or at its
	// usage limit.
	IncrementUsage(ctx context.Context, tx pgx.Tx, id int64, now time.Time) (bool, error)

	// DecrementUsage releases one usage slot within tx. It never takes the
	// counter below zero and returns false when there was nothing to release.
	DecrementUsage(ctx context.Context, tx pgx.Tx, id int64) (bool, error)

	// Upsert inserts or updates a promotion keyed by code, leaving its usage
	// counter untouched. It reports whether a new row was inserted.
	Upsert(ctx context.Context, p *model.Promotion) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction and sets
	// its ID and timestamps. It returns ErrDuplicateOrder on an idempotency
	// key conflict.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// CreateOrderEvent appends a status event within the provided transaction.
	CreateOrderEvent(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error

	// GetByID retrieves an order with its items and events, or nil.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// GetByIdempotencyKey retrieves the order a user created with key, or nil.
	GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first, without items.
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)

	// GetForUpdate locks an order row within tx and returns it with its items, or nil.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error)

	// UpdateStatus sets the status, and the tracking number when given, within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus, trackingNumber *string) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
}
