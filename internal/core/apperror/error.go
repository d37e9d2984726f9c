// Package apperror provides structured error handling for the workshop domain.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by taxonomy class
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Lifecycle violations (422)
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeMechanicNotAssigned     = "MECHANIC_NOT_ASSIGNED"

	// Invariant violations (422)
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeInvalidPriceMargin    = "INVALID_PRICE_MARGIN"
	CodeInvalidSKU            = "INVALID_SKU"
	CodeBudgetTotalMismatch   = "BUDGET_TOTAL_MISMATCH"
	CodeBudgetExpired         = "BUDGET_EXPIRED"
	CodeBudgetAlreadyApproved = "BUDGET_ALREADY_APPROVED"
	CodeBudgetAlreadyRejected = "BUDGET_ALREADY_REJECTED"

	// Authorization errors (401, 403)
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeUnauthorizedOperation = "UNAUTHORIZED_OPERATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidStatusTransition creates a transition error carrying the
// current status, the requested target and the statuses actually reachable.
func NewInvalidStatusTransition(current, target string, allowed []string) *AppError {
	return &AppError{
		Code:       CodeInvalidStatusTransition,
		Message:    fmt.Sprintf("cannot transition from %s to %s", current, target),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"current": current,
			"target":  target,
			"allowed": allowed,
		},
	}
}

// NewUnauthorizedOperation is raised by the role gate. It is deliberately
// distinct from CodeInvalidStatusTransition so callers can tell
// "impossible" apart from "forbidden".
func NewUnauthorizedOperation(role, operation string) *AppError {
	return &AppError{
		Code:       CodeUnauthorizedOperation,
		Message:    fmt.Sprintf("role %s may not perform %s", role, operation),
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"role": role, "operation": operation},
	}
}

// NewInsufficientStock creates a stock shortage error carrying the
// current balance and the requested quantity.
func NewInsufficientStock(stockItemID string, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"stock_item_id": stockItemID,
			"requested":     requested,
			"available":     available,
		},
	}
}

// NewInvalidPriceMargin is raised when a sale price undercuts cost.
func NewInvalidPriceMargin(unitCost, unitSalePrice int64) *AppError {
	return &AppError{
		Code:       CodeInvalidPriceMargin,
		Message:    "unit sale price must be greater than or equal to unit cost",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"unit_cost":       unitCost,
			"unit_sale_price": unitSalePrice,
		},
	}
}

// NewInvalidSKU is raised when a SKU fails format validation.
func NewInvalidSKU(sku string) *AppError {
	return &AppError{
		Code:       CodeInvalidSKU,
		Message:    "sku must be alphanumeric with optional hyphens (3-32 chars)",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"sku": sku},
	}
}

// NewBudgetTotalMismatch is raised when the stored total diverges from
// the sum of the budget items.
func NewBudgetTotalMismatch(budgetID string, stored, computed int64) *AppError {
	return &AppError{
		Code:       CodeBudgetTotalMismatch,
		Message:    "budget total does not match the sum of its items",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"budget_id": budgetID,
			"stored":    stored,
			"computed":  computed,
		},
	}
}

// NewBudgetExpired is raised when acting on a budget past its validity window.
func NewBudgetExpired(budgetID string) *AppError {
	return &AppError{
		Code:       CodeBudgetExpired,
		Message:    "budget validity period has elapsed",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"budget_id": budgetID},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode checks if error carries the given code
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// Expected reports whether the error belongs to one of the user-facing
// taxonomy classes. Anything else is infrastructure and should be wrapped
// before crossing the use-case boundary.
func Expected(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	return appErr.Code != CodeInternal && appErr.Code != CodeDatabase
}
