package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the full schema applied.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, connStr, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	return pool
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// seedProduct inserts an active product and returns its id.
func seedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO products (name, category, price, stock)
		VALUES ($1, 'test', $2, $3)
		RETURNING id
	`, name, d(price), stock).Scan(&id)
	require.NoError(t, err)

	return id
}

// seedVariant inserts an active variant of productID and returns its id.
func seedVariant(t *testing.T, pool *pgxpool.Pool, productID int64, name, price string, stock int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO product_variants (product_id, name, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, productID, name, d(price), stock).Scan(&id)
	require.NoError(t, err)

	return id
}

func setActive(t *testing.T, pool *pgxpool.Pool, table string, id int64, active bool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `UPDATE `+table+` SET active = $2 WHERE id = $1`, id, active)
	require.NoError(t, err)
}

func stockOf(t *testing.T, pool *pgxpool.Pool, table string, id int64) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock FROM `+table+` WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)

	return stock
}

// seedPromotion inserts p through the repository and returns it with its id set.
func seedPromotion(t *testing.T, repo PromotionRepository, p model.Promotion) model.Promotion {
	t.Helper()

	if p.DiscountType == "" {
		p.DiscountType = model.DiscountFixed
	}
	_, err := repo.Upsert(context.Background(), &p)
	require.NoError(t, err)

	return p
}
