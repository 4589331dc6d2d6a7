package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidBin is used when an inventory bin does not match NN-C-N-NC
	ErrCodeInvalidBin = "ERR_INVALID_BIN"
	// ErrCodeInvalidQuantity is used when a batch quantity is out of range
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
	// ErrCodeInvalidItem is used when the selected line item is not on the purchase order
	ErrCodeInvalidItem = "ERR_INVALID_ITEM"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when the operator is not logged in
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeInvalidCredentials is used when the backend rejected a login
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used when a batch is already printing
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeAlreadyResolved is used when a journal entry was already recorded
	ErrCodeAlreadyResolved = "ERR_ALREADY_RESOLVED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Upstream error codes
const (
	// ErrCodeUpstream is used when the inventory backend failed
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodePreviewUnavailable is used when the label could not be rasterized
	ErrCodePreviewUnavailable = "ERR_PREVIEW_UNAVAILABLE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidBin:      http.StatusBadRequest,
	ErrCodeInvalidQuantity: http.StatusBadRequest,
	ErrCodeInvalidItem:     http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeAlreadyResolved: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Upstream errors -> 502 Bad Gateway
	ErrCodeUpstream:           http.StatusBadGateway,
	ErrCodePreviewUnavailable: http.StatusBadGateway,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_STATE":           ErrCodeInvalidState,
	"UNAUTHORIZED":            ErrCodeUnauthorized,
	"NOT_AUTHENTICATED":       ErrCodeUnauthorized,
	"INVALID_CREDENTIALS":     ErrCodeInvalidCredentials,
	"CONFLICT":                ErrCodeConflict,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"INVALID_INVENTORY_BIN":   ErrCodeInvalidBin,
	"INVALID_EXPIRATION_DATE": ErrCodeValidation,
	"INVALID_PURCHASE_ORDER":  ErrCodeInvalidInput,
	"INVALID_DEVICE":          ErrCodeInvalidInput,
	"INVALID_TAG":             ErrCodeInvalidInput,
	"INVALID_QUANTITY":        ErrCodeInvalidQuantity,
	"INVALID_ITEM":            ErrCodeInvalidItem,
	"ALREADY_RESOLVED":        ErrCodeAlreadyResolved,
	"UPSTREAM_FAILURE":        ErrCodeUpstream,
	"RECORD_REJECTED":         ErrCodeUpstream,
	"PREVIEW_UNAVAILABLE":     ErrCodePreviewUnavailable,
	"BAD_REQUEST":             ErrCodeBadRequest,
	"INTERNAL_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
