package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheckout struct{ calls int }

func (s *stubCheckout) Checkout(_ context.Context, userID int64, _ *model.CheckoutRequest, _ string) (*service.CheckoutResult, error) {
	s.calls++
	return &service.CheckoutResult{Order: &model.Order{ID: 1, UserID: userID, Status: model.OrderStatusPending}}, nil
}

type stubOrders struct{}

func (stubOrders) GetByID(_ context.Context, actor model.Actor, id int64) (*model.Order, error) {
	return &model.Order{ID: id, UserID: actor.UserID}, nil
}

func (stubOrders) List(context.Context, model.Actor, int, int) ([]model.Order, error) {
	return []model.Order{}, nil
}

func (stubOrders) UpdateStatus(_ context.Context, _ model.Actor, id int64, update *model.StatusUpdate) (*model.Order, error) {
	return &model.Order{ID: id, Status: update.Status}, nil
}

type stubProducts struct{}

func (stubProducts) GetAll(context.Context, int, int) ([]model.Product, error) {
	return []model.Product{{ID: 1, Name: "Mug"}}, nil
}

func (stubProducts) GetByID(_ context.Context, id int64) (*model.Product, error) {
	return &model.Product{ID: id, Name: "Mug"}, nil
}

type stubPromotions struct{}

func (stubPromotions) Validate(context.Context, *model.PromotionValidationRequest) (*model.PromotionQuote, error) {
	return &model.PromotionQuote{PromotionID: 1, Code: "A"}, nil
}

type stubDB struct{}

func (stubDB) Ping(context.Context) error { return nil }

type countingLimiter struct{ hits map[string]int64 }

func (l *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	l.hits[scope]++
	return l.hits[scope] <= limit, l.hits[scope], nil
}

type testServer struct {
	handler  http.Handler
	checkout *stubCheckout
	tokens   *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	tokens, err := session.NewManager(config.AuthConfig{
		JWTSecret: "router-test-secret-0123456789abcdefgh",
		JWTIssuer: "storefront-test",
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(registry)

	checkout := &stubCheckout{}
	h := New(Deps{
		Products:   handler.NewProductHandler(stubProducts{}, false, logger),
		Checkout:   handler.NewCheckoutHandler(checkout, false, logger),
		Orders:     handler.NewOrderHandler(stubOrders{}, false, logger),
		Promotions: handler.NewPromotionHandler(stubPromotions{}, false, logger),
		DB:         stubDB{},
		Verifier:   tokens,
		Limiter:    &countingLimiter{hits: map[string]int64{}},
		Gatherer:   registry,
		RateLimit:  config.RateLimitConfig{CheckoutLimit: 2, ValidateLimit: 5, Window: time.Minute},
		Logger:     logger,
	})

	return &testServer{handler: h, checkout: checkout, tokens: tokens}
}

func (s *testServer) token(t *testing.T, actor model.Actor) string {
	t.Helper()
	tok, err := s.tokens.Mint(actor)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

const cart = `{"items":[{"productId":1,"quantity":1}],"shippingAddress":"a","town":"b"}`

func TestRouter_Routes(t *testing.T) {
	s := newTestServer(t)
	customer := s.token(t, model.Actor{UserID: 7, Role: model.RoleCustomer})
	admin := s.token(t, model.Actor{UserID: 1, Role: model.RoleAdmin})

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		auth           string
		expectedStatus int
	}{
		{name: "Health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Metrics", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "Products are public", method: http.MethodGet, path: "/api/products", expectedStatus: http.StatusOK},
		{name: "Product by ID", method: http.MethodGet, path: "/api/products/3", expectedStatus: http.StatusOK},
		{name: "Checkout requires auth", method: http.MethodPost, path: "/api/checkout", body: cart, expectedStatus: http.StatusUnauthorized},
		{name: "Checkout", method: http.MethodPost, path: "/api/checkout", body: cart, auth: customer, expectedStatus: http.StatusCreated},
		{name: "Orders alias", method: http.MethodPost, path: "/api/orders", body: cart, auth: admin, expectedStatus: http.StatusCreated},
		{name: "Order lookup", method: http.MethodGet, path: "/api/orders/9", auth: customer, expectedStatus: http.StatusOK},
		{name: "Order list", method: http.MethodGet, path: "/api/orders", auth: customer, expectedStatus: http.StatusOK},
		{name: "Promotion validate", method: http.MethodPost, path: "/api/promotions/validate", body: `{"code":"A","items":[{"productId":1,"quantity":1}]}`, auth: customer, expectedStatus: http.StatusOK},
		{name: "Admin route forbidden for customers", method: http.MethodPatch, path: "/api/admin/orders/9/status", body: `{"status":"processing"}`, auth: customer, expectedStatus: http.StatusForbidden},
		{name: "Admin status update", method: http.MethodPatch, path: "/api/admin/orders/9/status", body: `{"status":"processing"}`, auth: admin, expectedStatus: http.StatusOK},
		{name: "Unknown route", method: http.MethodGet, path: "/api/unknown", expectedStatus: http.StatusNotFound},
		{name: "Wrong method", method: http.MethodDelete, path: "/api/products", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body, tt.auth)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}

func TestRouter_CheckoutIsRateLimitedPerUser(t *testing.T) {
	s := newTestServer(t)
	first := s.token(t, model.Actor{UserID: 7, Role: model.RoleCustomer})
	second := s.token(t, model.Actor{UserID: 8, Role: model.RoleCustomer})

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/checkout", cart, first).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/orders", cart, first).Code)

	w := s.do(http.MethodPost, "/api/checkout", cart, first)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.ErrCodeRateLimited, body.Code)
	assert.NotEmpty(t, body.RequestID)

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/checkout", cart, second).Code)
	assert.Equal(t, 3, s.checkout.calls)
}
