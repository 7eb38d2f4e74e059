package dto

import "net/http"

// Error code constants returned by the API

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "VALIDATION_ERROR"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes.
// Codes absent from this table pass through unchanged so the client
// still sees the specific domain code.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"BILL_NOT_FOUND":       ErrCodeNotFound,
	"UPLOAD_NOT_FOUND":     ErrCodeNotFound,
	"USER_NOT_FOUND":       ErrCodeNotFound,
	"ROLE_NOT_FOUND":       ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"USERNAME_TAKEN":       ErrCodeAlreadyExists,
	"EMAIL_TAKEN":          ErrCodeAlreadyExists,
	"ROLE_CODE_TAKEN":      ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INVALID_CREDENTIALS":  ErrCodeUnauthorized,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"TOKEN_EXPIRED":        ErrCodeTokenExpired,
	"TOKEN_INVALID":        ErrCodeTokenInvalid,
	"TOKEN_REVOKED":        ErrCodeTokenInvalid,
	"FORBIDDEN":            ErrCodeForbidden,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// DomainErrorHTTPStatus maps domain codes that keep their own code to
// a status other than 500
var DomainErrorHTTPStatus = map[string]int{
	"ACCOUNT_LOCKED":             http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED":        http.StatusUnauthorized,
	"ACCOUNT_INACTIVE":           http.StatusUnauthorized,
	"SCHEMA_INVALID":             http.StatusBadRequest,
	"WORKBOOK_INVALID":           http.StatusBadRequest,
	"FILE_TOO_LARGE":             http.StatusRequestEntityTooLarge,
	"INVALID_FILE_TYPE":          http.StatusBadRequest,
	"INVALID_FILE_NAME":          http.StatusBadRequest,
	"UPLOAD_FILE_MISSING":        http.StatusConflict,
	"NO_BILLABLE_ROWS":           http.StatusUnprocessableEntity,
	"NO_BILLS":                   http.StatusUnprocessableEntity,
	"INVALID_AMOUNT":             http.StatusBadRequest,
	"INVALID_PAYMENT_MODE":       http.StatusBadRequest,
	"INVALID_REASON":             http.StatusBadRequest,
	"EXCEEDS_OUTSTANDING":        http.StatusUnprocessableEntity,
	"INVALID_STATE":              http.StatusUnprocessableEntity,
	"INVOICE_ALREADY_ASSIGNED":   http.StatusConflict,
	"PDF_DISABLED":               http.StatusNotImplemented,
	"ARCHIVE_DISABLED":           http.StatusNotImplemented,
	"MAIL_DISABLED":              http.StatusNotImplemented,
	"INVALID_RECIPIENTS":         http.StatusBadRequest,
	"SYSTEM_ROLE_PROTECTED":      http.StatusUnprocessableEntity,
	"ROLE_IN_USE":                http.StatusUnprocessableEntity,
	"CANNOT_DELETE_SELF":         http.StatusUnprocessableEntity,
	"CANNOT_DEACTIVATE_SELF":     http.StatusUnprocessableEntity,
	"INVALID_PASSWORD":           http.StatusBadRequest,
	"INVALID_USERNAME":           http.StatusBadRequest,
	"INVALID_EMAIL":              http.StatusBadRequest,
	"INVALID_DISPLAY_NAME":       http.StatusBadRequest,
	"INVALID_ROLE_ID":            http.StatusBadRequest,
	"INVALID_ROLE_CODE":          http.StatusBadRequest,
	"INVALID_ROLE_NAME":          http.StatusBadRequest,
	"INVALID_PERMISSION":         http.StatusBadRequest,
	"INVALID_PERMISSION_CODE":    http.StatusBadRequest,
	"INVALID_CENTER_NAME":        http.StatusBadRequest,
	"INVALID_CENTER_TYPE":        http.StatusBadRequest,
	"INVALID_SHARING_PERCENT":    http.StatusBadRequest,
	"ALREADY_ACTIVE":             http.StatusConflict,
	"ALREADY_DEACTIVATED":        http.StatusConflict,
	"NOT_LOCKED":                 http.StatusConflict,
	"ROLE_ALREADY_ASSIGNED":      http.StatusConflict,
	"ROLE_NOT_ASSIGNED":          http.StatusConflict,
	"PERMISSION_ALREADY_GRANTED": http.StatusConflict,
	"PERMISSION_NOT_GRANTED":     http.StatusConflict,
}

// ResolveDomainError maps a domain error code to the API code and
// HTTP status to return
func ResolveDomainError(code string) (string, int) {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode, GetHTTPStatus(apiCode)
	}
	if status, ok := DomainErrorHTTPStatus[code]; ok {
		return code, status
	}
	// An unmapped domain code is a business rule violation
	return code, http.StatusUnprocessableEntity
}
