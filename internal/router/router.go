package router

import (
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP surface is built from. Limiter and
// Gatherer may be nil.
type Deps struct {
	Products   *handler.ProductHandler
	Checkout   *handler.CheckoutHandler
	Orders     *handler.OrderHandler
	Promotions *handler.PromotionHandler
	DB         handler.Pinger
	Verifier   session.Verifier
	Limiter    middleware.Limiter
	Gatherer   prometheus.Gatherer
	RateLimit  config.RateLimitConfig
	Logger     zerolog.Logger
}

// New creates a new HTTP router with all routes and middleware configured.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS
	r.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestID,
		middleware.Logging(deps.Logger),
		middleware.CORS,
	)

	// Health check and metrics endpoints (no authentication required)
	r.Get("/health", handler.Health(deps.DB, 2*time.Second, deps.Logger))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	checkoutLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  deps.RateLimit.CheckoutLimit,
		Window: deps.RateLimit.Window,
	}, deps.Limiter, deps.Logger)
	validateLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "promo_validate",
		Limit:  deps.RateLimit.ValidateLimit,
		Window: deps.RateLimit.Window,
	}, deps.Limiter, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", deps.Products.GetAll)
		r.Get("/products/{id}", deps.Products.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Verifier, deps.Logger))

			r.With(checkoutLimit).Post("/checkout", deps.Checkout.Checkout)
			r.With(checkoutLimit).Post("/orders", deps.Checkout.Checkout)
			r.With(validateLimit).Post("/promotions/validate", deps.Promotions.Validate)

			r.Get("/orders", deps.Orders.List)
			r.Get("/orders/{id}", deps.Orders.GetByID)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Patch("/orders/{id}/status", deps.Orders.UpdateStatus)
			})
		})
	})

	return r
}
