package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
// Useful for validation errors or other dynamic messages.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrUnauthorized = APIError{
		Code:    CodeUnauthorized,
		Message: MsgUnauthorized,
		Status:  http.StatusUnauthorized,
	}
	ErrRateLimited = APIError{
		Code:    CodeRateLimited,
		Message: MsgRateLimited,
		Status:  http.StatusTooManyRequests,
	}
	// ErrTransactionFailed is sent with a Retry-After header.
	ErrTransactionFailed = APIError{
		Code:    CodeTransactionFailed,
		Message: MsgTransactionFailed,
		Status:  http.StatusServiceUnavailable,
	}
	ErrStorageUnavailable = APIError{
		Code:    CodeStorageUnavailable,
		Message: MsgStorageUnavailable,
		Status:  http.StatusServiceUnavailable,
	}
)

// Link-specific errors
var (
	ErrInvalidURL = APIError{
		Code:    CodeInvalidURL,
		Message: MsgInvalidURL,
		Status:  http.StatusBadRequest,
	}
	ErrInvalidCode = APIError{
		Code:    CodeInvalidCode,
		Message: MsgInvalidCode,
		Status:  http.StatusBadRequest,
	}
	ErrCodeConflict = APIError{
		Code:    CodeCodeConflict,
		Message: MsgCodeConflict,
		Status:  http.StatusConflict,
	}
	ErrLinkNotFound = APIError{
		Code:    CodeLinkNotFound,
		Message: MsgLinkNotFound,
		Status:  http.StatusNotFound,
	}
)
