package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader is the optional client supplied checkout retry key.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader marks a response that returns an existing order.
const ReplayedHeader = "Idempotent-Replayed"

// CheckoutHandler handles checkout HTTP requests.
type CheckoutHandler struct {
	service service.CheckoutService
	errors  errorResponder
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler. When exposeInternal is
// set, unexpected failures carry their error text in the response.
func NewCheckoutHandler(service service.CheckoutService, exposeInternal bool, logger zerolog.Logger) *CheckoutHandler {
	logger = logger.With().Str("handler", "checkout").Logger()
	return &CheckoutHandler{
		service: service,
		errors:  errorResponder{logger: logger, exposeInternal: exposeInternal},
		logger:  logger,
	}
}

// Checkout handles POST /api/checkout requests.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid checkout body")
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body")
		return
	}

	result, err := h.service.Checkout(r.Context(), actor.UserID, &req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeOrderCreationFailed)
		return
	}

	if result.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		writeJSON(w, http.StatusOK, result.Order)
		return
	}

	writeJSON(w, http.StatusCreated, result.Order)
}
