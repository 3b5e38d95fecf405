// Error types and handling
package llm

import (
	"errors"
	"net/http"
)

// Error codes shared by all providers
const (
	ErrorCodeMissingAPIKey  = "missing_api_key"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeRateLimit      = "rate_limit_error"
	ErrorCodeValidation     = "validation_error"
	ErrorCodeProvider       = "provider_error"
	ErrorCodeEmptyResponse  = "empty_response"
)

// Error represents a standardized LLM error
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewMissingAPIKeyError reports a provider configured without credentials
func NewMissingAPIKeyError(provider string) *Error {
	return &Error{
		Code:    ErrorCodeMissingAPIKey,
		Message: provider + " API key is required",
		Type:    ErrorCodeAuthentication,
	}
}

// NewValidationError reports a request rejected before it reached the provider
func NewValidationError(message string) *Error {
	return &Error{
		Code:       ErrorCodeValidation,
		Message:    message,
		Type:       ErrorCodeValidation,
		StatusCode: http.StatusBadRequest,
	}
}

// NewEmptyResponseError reports a provider response without any choice
func NewEmptyResponseError(provider string) *Error {
	return &Error{
		Code:    ErrorCodeEmptyResponse,
		Message: provider + " returned no choices",
		Type:    ErrorCodeProvider,
	}
}

// NewProviderError maps an HTTP status returned by a provider into an Error
func NewProviderError(statusCode int, message, errType string) *Error {
	code := ErrorCodeProvider
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrorCodeAuthentication
	case http.StatusTooManyRequests:
		code = ErrorCodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = ErrorCodeValidation
	}
	if errType == "" {
		errType = code
	}
	return &Error{
		Code:       code,
		Message:    message,
		Type:       errType,
		StatusCode: statusCode,
	}
}

// IsErrorCode reports whether err is an *Error with the given code
func IsErrorCode(err error, code string) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Code == code
	}
	return false
}
