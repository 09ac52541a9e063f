package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are formatted "<MODULE>_<NNN>" so that ModuleForCode can derive the
// owning module for metric labels.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeStorage            ErrorCode = "COMMON_012"
	ErrCodeCanceled           ErrorCode = "COMMON_013"
	ErrCodeRateLimited        ErrorCode = "COMMON_014"
)

// Aliases used at call sites that read better with a short name.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Validation engine error codes.
const (
	// ErrCodeMissingColumn is returned when the input table lacks one of the
	// columns the engine consumes.  It is raised before any row is read.
	ErrCodeMissingColumn ErrorCode = "VAL_001"

	// ErrCodeInvalidRecordSet covers input that cannot be read as a table at
	// all (no header, ragged rows, undetectable delimiter).
	ErrCodeInvalidRecordSet ErrorCode = "VAL_002"

	// ErrCodeRegulationNotFound is returned when a caller names a regulation
	// the catalog does not contain.
	ErrCodeRegulationNotFound ErrorCode = "VAL_003"

	// ErrCodeCatalogInvalid is returned when the regulatory catalog file is
	// malformed or carries impossible limits.
	ErrCodeCatalogInvalid ErrorCode = "VAL_004"

	// ErrCodeInvalidPolicy is returned for an unknown number-parsing policy.
	ErrCodeInvalidPolicy ErrorCode = "VAL_005"

	// ErrCodeExportFailed is returned when a result table cannot be written.
	ErrCodeExportFailed ErrorCode = "VAL_006"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeStorage:            http.StatusInternalServerError,
	ErrCodeCanceled:           499,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	ErrCodeMissingColumn:      http.StatusUnprocessableEntity,
	ErrCodeInvalidRecordSet:   http.StatusBadRequest,
	ErrCodeRegulationNotFound: http.StatusNotFound,
	ErrCodeCatalogInvalid:     http.StatusInternalServerError,
	ErrCodeInvalidPolicy:      http.StatusBadRequest,
	ErrCodeExportFailed:       http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeStorage:            "storage error",
	ErrCodeCanceled:           "operation canceled",
	ErrCodeRateLimited:        "rate limit exceeded",

	ErrCodeMissingColumn:      "required column missing from input",
	ErrCodeInvalidRecordSet:   "input is not a readable record table",
	ErrCodeRegulationNotFound: "regulation not found in catalog",
	ErrCodeCatalogInvalid:     "regulatory catalog is invalid",
	ErrCodeInvalidPolicy:      "unknown number parsing policy",
	ErrCodeExportFailed:       "failed to export result table",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
