package repository

import (
	"context"
	"testing"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(userID int64, subtotal, discount, final string) *model.Order {
	return &model.Order{
		UserID:          userID,
		Subtotal:        d(subtotal),
		DiscountAmount:  d(discount),
		FinalAmount:     d(final),
		Status:          model.OrderStatusPending,
		PaymentMethod:   model.DefaultPaymentMethod,
		ShippingAddress: "12 Market Street",
		Town:            "Springfield",
	}
}

// commitOrder writes order and its items in one transaction.
func commitOrder(t *testing.T, repo OrderRepository, order *model.Order, items []model.OrderItem) {
	t.Helper()
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	for i := range items {
		items[i].OrderID = order.ID
	}
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, repo.CreateOrderEvent(ctx, tx, &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusPending, Notes: "Order created"}))
	require.NoError(t, tx.Commit(ctx))

	order.Items = items
}

func seedOrderProducts(t *testing.T, pool *pgxpool.Pool) (product, variantProduct, variant int64) {
	product = seedProduct(t, pool, "Notebook", "4.50", 100)
	variantProduct = seedProduct(t, pool, "Hoodie", "40.00", 100)
	variant = seedVariant(t, pool, variantProduct, "Medium", "42.00", 100)
	return product, variantProduct, variant
}

func TestOrderRepository_BeginTx(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)

	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.NoError(t, tx.Rollback(ctx))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	product, variantProduct, variant := seedOrderProducts(t, pool)
	promoRepo := NewPromotionRepository(pool, zerolog.Nop())
	promo := seedPromotion(t, promoRepo, model.Promotion{Code: strPtr("TENOFF"), Active: true, DiscountValue: d("10")})

	order := newOrder(42, "51.00", "10.00", "41.00")
	order.PromotionID = &promo.ID
	order.PromotionCode = promo.Code
	items := []model.OrderItem{
		{ProductID: product, Quantity: 2, UnitPrice: d("4.50"), LineTotal: d("9.00")},
		{ProductID: variantProduct, VariantID: &variant, Quantity: 1, UnitPrice: d("42.00"), LineTotal: d("42.00")},
	}
	commitOrder(t, repo, order, items)

	assert.NotZero(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	for _, item := range order.Items {
		assert.NotZero(t, item.ID)
	}

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, int64(42), got.UserID)
	assert.True(t, d("51.00").Equal(got.Subtotal))
	assert.True(t, d("10.00").Equal(got.DiscountAmount))
	assert.True(t, d("41.00").Equal(got.FinalAmount))
	require.NotNil(t, got.PromotionID)
	assert.Equal(t, promo.ID, *got.PromotionID)
	assert.Equal(t, "TENOFF", *got.PromotionCode)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, "cod", got.PaymentMethod)

	require.Len(t, got.Items, 2)
	assert.Nil(t, got.Items[0].VariantID)
	require.NotNil(t, got.Items[1].VariantID)
	assert.Equal(t, variant, *got.Items[1].VariantID)
	assert.True(t, d("42.00").Equal(got.Items[1].UnitPrice))

	require.Len(t, got.Events, 1)
	assert.Equal(t, "Order created", got.Events[0].Notes)

	t.Run("Order does not exist", func(t *testing.T) {
		missing, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestOrderRepository_FinalAmountConstraint(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = repo.CreateOrder(ctx, tx, newOrder(1, "10.00", "2.00", "9.00"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateOrder)
}

func TestOrderRepository_IdempotencyKey(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	product, _, _ := seedOrderProducts(t, pool)

	key := "checkout-7f3a"
	first := newOrder(5, "4.50", "0", "4.50")
	first.IdempotencyKey = &key
	commitOrder(t, repo, first, []model.OrderItem{{ProductID: product, Quantity: 1, UnitPrice: d("4.50"), LineTotal: d("4.50")}})

	t.Run("Duplicate key for same user", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		dup := newOrder(5, "4.50", "0", "4.50")
		dup.IdempotencyKey = &key
		err = repo.CreateOrder(ctx, tx, dup)

		assert.ErrorIs(t, err, ErrDuplicateOrder)
	})

	t.Run("Same key for another user", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		other := newOrder(6, "4.50", "0", "4.50")
		other.IdempotencyKey = &key

		assert.NoError(t, repo.CreateOrder(ctx, tx, other))
	})

	t.Run("Lookup by key", func(t *testing.T) {
		got, err := repo.GetByIdempotencyKey(ctx, 5, key)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		require.NotNil(t, got.IdempotencyKey)
		assert.Equal(t, key, *got.IdempotencyKey)
		assert.Len(t, got.Items, 1)
	})

	t.Run("Lookup misses", func(t *testing.T) {
		got, err := repo.GetByIdempotencyKey(ctx, 6, key)

		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestOrderRepository_ListByUser(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	product, _, _ := seedOrderProducts(t, pool)

	var ids []int64
	for range 3 {
		o := newOrder(9, "4.50", "0", "4.50")
		commitOrder(t, repo, o, []model.OrderItem{{ProductID: product, Quantity: 1, UnitPrice: d("4.50"), LineTotal: d("4.50")}})
		ids = append(ids, o.ID)
	}
	commitOrder(t, repo, newOrder(10, "4.50", "0", "4.50"), []model.OrderItem{{ProductID: product, Quantity: 1, UnitPrice: d("4.50"), LineTotal: d("4.50")}})

	orders, err := repo.ListByUser(ctx, 9, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, ids[2], orders[0].ID, "newest first")
	for _, o := range orders {
		assert.Equal(t, int64(9), o.UserID)
	}

	page, err := repo.ListByUser(ctx, 9, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	none, err := repo.ListByUser(ctx, 404, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestOrderRepository_StatusUpdate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	product, _, _ := seedOrderProducts(t, pool)
	order := newOrder(3, "9.00", "0", "9.00")
	commitOrder(t, repo, order, []model.OrderItem{{ProductID: product, Quantity: 2, UnitPrice: d("4.50"), LineTotal: d("9.00")}})

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := repo.GetForUpdate(ctx, tx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Len(t, locked.Items, 1)

	tracking := "TRK-001"
	require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusShipped, &tracking))
	require.NoError(t, repo.CreateOrderEvent(ctx, tx, &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusShipped}))
	require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusDelivered, nil))

	assert.ErrorIs(t, repo.UpdateStatus(ctx, tx, 999999, model.OrderStatusShipped, nil), model.ErrOrderNotFound)

	missing, err := repo.GetForUpdate(ctx, tx, 999999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, tracking, *got.TrackingNumber, "tracking number kept when not supplied")
	assert.Len(t, got.Events, 2)
}

func TestOrderRepository_TransactionRollback(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	order := newOrder(1, "1.00", "0", "1.00")
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_ErrorPaths(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	pool.Close()

	t.Run("BeginTx with closed pool", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)

		require.Error(t, err)
		assert.Nil(t, tx)
	})

	t.Run("GetByID with closed pool", func(t *testing.T) {
		order, err := repo.GetByID(ctx, 1)

		require.Error(t, err)
		assert.Nil(t, order)
	})

	t.Run("ListByUser with closed pool", func(t *testing.T) {
		orders, err := repo.ListByUser(ctx, 1, 10, 0)

		require.Error(t, err)
		assert.Nil(t, orders)
	})
}
