package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	errors  errorResponder
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, exposeInternal bool, logger zerolog.Logger) *OrderHandler {
	logger = logger.With().Str("handler", "order").Logger()
	return &OrderHandler{
		service: service,
		errors:  errorResponder{logger: logger, exposeInternal: exposeInternal},
		logger:  logger,
	}
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format")
		return
	}

	order, err := h.service.GetByID(r.Context(), actor, orderID)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders requests with pagination.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	orders, err := h.service.List(r.Context(), actor, limit, offset)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format")
		return
	}

	var update model.StatusUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), actor, orderID, &update)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
