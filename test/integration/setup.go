package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/audit"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestDB starts a PostgreSQL container and applies the embedded migrations.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	opts := database.DefaultPoolOptions()
	opts.MaxConns = 20
	pool, err := database.Connect(ctx, connStr, opts)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return pool
}

// TestServer is the full HTTP stack over a real database.
type TestServer struct {
	Handler  http.Handler
	Checkout service.CheckoutService
	Registry *prometheus.Registry
	tokens   *session.Manager
}

// NewTestServer wires repositories, services and the router the way cmd/api
// does, without rate limiting.
func NewTestServer(t *testing.T, pool *pgxpool.Pool) *TestServer {
	t.Helper()

	logger := zerolog.Nop()

	tokens, err := session.NewManager(config.AuthConfig{
		JWTSecret: "integration-secret-0123456789abcdef",
		JWTIssuer: "storefront-test",
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	promotionRepo := repository.NewPromotionRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	auditLogger := audit.NewPostgresLogger(pool, logger)

	checkoutService, err := service.NewCheckoutService(service.CheckoutDeps{
		Catalog:    catalogRepo,
		Promotions: promotionRepo,
		Orders:     orderRepo,
		Audit:      auditLogger,
		Metrics:    metrics.NewCheckoutMetrics(registry),
		Logger:     logger,
	})
	require.NoError(t, err)

	h := router.New(router.Deps{
		Products:   handler.NewProductHandler(service.NewProductService(productRepo, logger), true, logger),
		Checkout:   handler.NewCheckoutHandler(checkoutService, true, logger),
		Orders:     handler.NewOrderHandler(service.NewOrderService(orderRepo, catalogRepo, promotionRepo, auditLogger, logger), true, logger),
		Promotions: handler.NewPromotionHandler(service.NewPromotionService(catalogRepo, promotionRepo, logger), true, logger),
		DB:         pool,
		Verifier:   tokens,
		Gatherer:   registry,
		RateLimit:  config.RateLimitConfig{CheckoutLimit: 1000, ValidateLimit: 1000, Window: time.Minute},
		Logger:     logger,
	})

	return &TestServer{Handler: h, Checkout: checkoutService, Registry: registry, tokens: tokens}
}

// Token mints a bearer token for actor.
func (s *TestServer) Token(t *testing.T, actor model.Actor) string {
	t.Helper()

	token, err := s.tokens.Mint(actor)
	require.NoError(t, err)
	return token
}

// Do sends a request through the router. body is JSON encoded when not nil.
func (s *TestServer) Do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

// CleanupDB empties every table and resets identities.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE audit_logs, order_events, order_items, orders, promotions, product_variants, products
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SeedProduct inserts an active product and returns its id.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) int64 {
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

// SeedVariant inserts an active variant of productID and returns its id.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, productID int64, name, price string, stock int) int64 {
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

// PromotionSeed describes a promotion row. Empty amount strings are NULL.
type PromotionSeed struct {
	Code        string
	AutoApply   bool
	Type        model.DiscountType
	Value       string
	MaxDiscount string
	MinOrder    string
	UsageLimit  *int
}

// SeedPromotion inserts an active promotion and returns its id.
func SeedPromotion(t *testing.T, pool *pgxpool.Pool, p PromotionSeed) int64 {
	t.Helper()

	var code *string
	if p.Code != "" {
		code = &p.Code
	}

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO promotions (code, auto_apply, discount_type, discount_value, max_discount, min_order_amount, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, code, p.AutoApply, p.Type, d(p.Value), nullAmount(p.MaxDiscount), nullAmount(p.MinOrder), p.UsageLimit).Scan(&id)
	require.NoError(t, err)
	return id
}

func nullAmount(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d(s))
}

// StockOf returns the stock column of a products or product_variants row.
func StockOf(t *testing.T, pool *pgxpool.Pool, table string, id int64) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock FROM `+table+` WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// UsageOf returns a promotion's usage counter.
func UsageOf(t *testing.T, pool *pgxpool.Pool, promotionID int64) int {
	t.Helper()

	var usage int
	err := pool.QueryRow(context.Background(), `SELECT usage_count FROM promotions WHERE id = $1`, promotionID).Scan(&usage)
	require.NoError(t, err)
	return usage
}

// CountRows returns the number of rows in table matching where.
func CountRows(t *testing.T, pool *pgxpool.Pool, table, where string, args ...any) int {
	t.Helper()

	query := `SELECT COUNT(*) FROM ` + table
	if where != "" {
		query += ` WHERE ` + where
	}

	var count int
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&count))
	return count
}
