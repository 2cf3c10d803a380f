package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/agrilink/agrilink-api/models"
)

// Stable machine-readable error codes returned in API responses
const (
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeDistrictMismatch  = "DISTRICT_MISMATCH"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeStoreError        = "STORE_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
)

// ServiceError represents a business rule violation with a stable code
// and the HTTP status it maps to
type ServiceError struct {
	Code    string
	Message string
	Status  int
	Err     error // wrapped cause, set for store errors
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// AsServiceError unwraps err into a ServiceError if it is one
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// NewPermissionDenied indicates the caller's role does not allow the operation
func NewPermissionDenied(message string) *ServiceError {
	return &ServiceError{Code: CodePermissionDenied, Message: message, Status: http.StatusForbidden}
}

// NewNotFound indicates a referenced entity does not exist
func NewNotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, Status: http.StatusNotFound}
}

// NewInsufficientStock indicates the requested quantity exceeds available stock
func NewInsufficientStock(message string) *ServiceError {
	return &ServiceError{Code: CodeInsufficientStock, Message: message, Status: http.StatusBadRequest}
}

// NewDistrictMismatch indicates the agent's district differs from the product's
func NewDistrictMismatch(message string) *ServiceError {
	return &ServiceError{Code: CodeDistrictMismatch, Message: message, Status: http.StatusBadRequest}
}

// NewInvalidTransition indicates a disallowed status change, carrying the
// current and requested statuses for diagnostics
func NewInvalidTransition(current, requested models.OrderStatus) *ServiceError {
	return &ServiceError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("Cannot transition order from '%s' to '%s'", current, requested),
		Status:  http.StatusBadRequest,
	}
}

// NewAccessDenied indicates the caller is authenticated but not a party to the resource
func NewAccessDenied(message string) *ServiceError {
	return &ServiceError{Code: CodeAccessDenied, Message: message, Status: http.StatusForbidden}
}

// NewValidationError indicates a malformed or missing request argument
func NewValidationError(message string) *ServiceError {
	return &ServiceError{Code: CodeValidationError, Message: message, Status: http.StatusBadRequest}
}

// NewStoreError wraps an unexpected persistence failure
func NewStoreError(err error) *ServiceError {
	return &ServiceError{
		Code:    CodeStoreError,
		Message: "An unexpected storage error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
