package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// PromotionHandler handles promotion HTTP requests.
type PromotionHandler struct {
	service service.PromotionService
	errors  errorResponder
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(service service.PromotionService, exposeInternal bool, logger zerolog.Logger) *PromotionHandler {
	logger = logger.With().Str("handler", "promotion").Logger()
	return &PromotionHandler{
		service: service,
		errors:  errorResponder{logger: logger, exposeInternal: exposeInternal},
	}
}

// Validate handles POST /api/promotions/validate requests.
func (h *PromotionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.PromotionValidationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body")
		return
	}

	quote, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
