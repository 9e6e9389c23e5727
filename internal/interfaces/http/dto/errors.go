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

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Reconciliation error codes mirror the domain's error taxonomy so clients
// can distinguish a bad upload from a failed run.
const (
	// ErrCodeEmptyInput is used when an uploaded file or sheet has no usable rows
	ErrCodeEmptyInput = "ERR_RECONCILE_EMPTY_INPUT"
	// ErrCodeInvalidQuantity is used when count sheet quantities cannot be parsed
	ErrCodeInvalidQuantity = "ERR_RECONCILE_INVALID_QUANTITY"
	// ErrCodeLotecartCoherence is used when phantom-lot corrections fail validation
	ErrCodeLotecartCoherence = "ERR_RECONCILE_LOTECART_COHERENCE"
	// ErrCodeOutputCoherence is used when the regenerated file fails validation
	ErrCodeOutputCoherence = "ERR_RECONCILE_OUTPUT_COHERENCE"
	// ErrCodeReconcileFailed is used for any other reconciliation failure
	ErrCodeReconcileFailed = "ERR_RECONCILE_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// Reconciliation errors -> 422 Unprocessable Entity, except bad input
	ErrCodeEmptyInput:        http.StatusBadRequest,
	ErrCodeInvalidQuantity:   http.StatusBadRequest,
	ErrCodeLotecartCoherence: http.StatusUnprocessableEntity,
	ErrCodeOutputCoherence:   http.StatusUnprocessableEntity,
	ErrCodeReconcileFailed:   http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API's standardized codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"INVALID_STRATEGY":      ErrCodeInvalidInput,
	"INVALID_QUANTITY_MODE": ErrCodeInvalidInput,
	"INVALID_FILE_KIND":     ErrCodeInvalidInput,
	"INVALID_FILENAME":      ErrCodeInvalidInput,
	"INTERNAL_ERROR":        ErrCodeInternal,

	"RECONCILE_EMPTY_INPUT":                ErrCodeEmptyInput,
	"RECONCILE_NO_AGGREGATION_KEY":         ErrCodeBadRequest,
	"RECONCILE_INVALID_QUANTITY":           ErrCodeInvalidQuantity,
	"RECONCILE_INVALID_LOTECART_CANDIDATE": ErrCodeReconcileFailed,
	"RECONCILE_MISSING_REFERENCE_LINE":     ErrCodeReconcileFailed,
	"RECONCILE_LOTECART_COHERENCE":         ErrCodeLotecartCoherence,
	"RECONCILE_ADJUSTMENT_CONFLICT":        ErrCodeReconcileFailed,
	"RECONCILE_ADJUSTMENT_COHERENCE":       ErrCodeReconcileFailed,
	"RECONCILE_OUTPUT_COHERENCE":           ErrCodeOutputCoherence,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
