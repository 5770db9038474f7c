package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// errorResponder maps service errors onto HTTP responses. Domain errors are
// shown verbatim. Anything else is logged and reported under fallbackCode
// with its detail hidden unless exposeInternal is set.
type errorResponder struct {
	logger         zerolog.Logger
	exposeInternal bool
}

func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, err error, fallbackCode string) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, r, statusForCode(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	e.logger.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("request failed")

	message := "internal server error"
	if e.exposeInternal {
		message = err.Error()
	}
	writeError(w, r, http.StatusInternalServerError, fallbackCode, message)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON,
		model.ErrCodeValidation,
		model.ErrCodeProductNotFound,
		model.ErrCodeProductInactive,
		model.ErrCodeInsufficientStock,
		model.ErrCodePromotionInvalid:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidStatusTransition:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst. Trailing data is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset query parameters. Missing values are zero
// and left for the service to default.
func pagination(r *http.Request) (limit, offset int, err error) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, model.NewValidationError("invalid limit parameter")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, model.NewValidationError("invalid offset parameter")
		}
	}
	return limit, offset, nil
}

// actorFromRequest returns the authenticated caller or writes a 401.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
		return model.Actor{}, false
	}
	return actor, true
}
