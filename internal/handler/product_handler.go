package handler

import (
	"errors"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	errors  errorResponder
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, exposeInternal bool, logger zerolog.Logger) *ProductHandler {
	logger = logger.With().Str("handler", "product").Logger()
	return &ProductHandler{
		service: service,
		errors:  errorResponder{logger: logger, exposeInternal: exposeInternal},
		logger:  logger,
	}
}

// GetAll handles GET /api/products requests with pagination.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format")
		return
	}

	product, err := h.service.GetByID(r.Context(), productID)
	if err != nil {
		// A single missing resource is a 404 here, unlike a missing cart line.
		if errors.Is(err, model.ErrProductNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found")
			return
		}
		h.errors.respond(w, r, err, model.ErrCodeInternalError)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
