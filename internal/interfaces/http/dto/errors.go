package dto

import "net/http"

// Transport-level error codes. Domain codes come from shared.DomainError
// and are passed through unchanged.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes.
// Unknown codes fall back to 500.
var errorCodeHTTPStatus = map[string]int{
	// Transport
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeInternal:     http.StatusInternalServerError,

	// Lookup and access
	"NOT_FOUND": http.StatusNotFound,
	"FORBIDDEN": http.StatusForbidden,

	// Conflicts with current persisted state
	"OPTIMISTIC_LOCK_FAILED":  http.StatusConflict,
	"COLLECTION_SHEET_EXISTS": http.StatusConflict,
	"INVOICE_IN_ACTIVE_SHEET": http.StatusConflict,
	"DUPLICATE_INVOICE":       http.StatusConflict,
	"ALREADY_SETTLED":         http.StatusConflict,
	"ALREADY_EXISTS":          http.StatusConflict,

	// Business rule violations
	"INVALID_STATE":                  http.StatusUnprocessableEntity,
	"NO_LINES":                       http.StatusUnprocessableEntity,
	"NO_ROUTE":                       http.StatusUnprocessableEntity,
	"NO_APPROVED_SETTLEMENT":         http.StatusUnprocessableEntity,
	"NOT_DELIVERED_WITH_COLLECTION":  http.StatusUnprocessableEntity,
	"EXCEEDS_INVOICE_TOTAL":          http.StatusUnprocessableEntity,
	"EXCEEDS_RESIDUAL":               http.StatusUnprocessableEntity,
	"INVOICE_NOT_IN_SETTLEMENT":      http.StatusUnprocessableEntity,
	"INVOICE_NOT_POSTED":             http.StatusUnprocessableEntity,
	"MISSING_INVOICE":                http.StatusUnprocessableEntity,
	"MISSING_PAYMENT":                http.StatusUnprocessableEntity,
	"PENDING_LINES":                  http.StatusUnprocessableEntity,

	// Malformed or out-of-range input
	"INVALID_AMOUNT":         http.StatusBadRequest,
	"INVALID_REASON":         http.StatusBadRequest,
	"INVALID_REFERENCE":      http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD": http.StatusBadRequest,
	"INVALID_INVOICE":        http.StatusBadRequest,
	"INVALID_SHEET_NUMBER":   http.StatusBadRequest,

	// Upstream accounting failures
	"ACCOUNTING_UNAVAILABLE": http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
