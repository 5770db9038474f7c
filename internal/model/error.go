package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeProductInactive         = "PRODUCT_INACTIVE"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodePromotionInvalid        = "PROMOTION_INVALID"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeOrderCreationFailed     = "ORDER_CREATION_FAILED"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeRateLimited             = "RATE_LIMITED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is a business rule failure that is safe to show to clients.
// Two domain errors match under errors.Is when their codes are equal, so
// callers compare against the sentinels below even when the message carries
// request-specific detail.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation              = NewDomainError(ErrCodeValidation, "Invalid request")
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrProductInactive         = NewDomainError(ErrCodeProductInactive, "One or more products are not available")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock")
	ErrPromotionInvalid        = NewDomainError(ErrCodePromotionInvalid, "Promotion is not valid")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Invalid order status transition")
	ErrUnauthorised            = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "Insufficient permissions")
)

func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

func NewProductNotFoundError(key CatalogKey) *DomainError {
	return NewDomainError(ErrCodeProductNotFound, fmt.Sprintf("%s not found", key))
}

func NewProductInactiveError(key CatalogKey) *DomainError {
	return NewDomainError(ErrCodeProductInactive, fmt.Sprintf("%s is not available", key))
}

func NewInsufficientStockError(key CatalogKey, requested, available int) *DomainError {
	return NewDomainError(ErrCodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: requested %d, available %d", key, requested, available))
}

func NewPromotionInvalidError(reason string) *DomainError {
	return NewDomainError(ErrCodePromotionInvalid, reason)
}

func NewInvalidStatusTransitionError(from, to OrderStatus) *DomainError {
	return NewDomainError(ErrCodeInvalidStatusTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to))
}
