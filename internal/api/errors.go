// Package api holds the JSON error and response shapes of the HTTP API and
// maps planner errors onto them.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/trip"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// ErrorCode represents error codes used in API responses
type ErrorCode string

const (
	// ErrorCodeInvalidRequest represents invalid trip input
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrorCodeNotFound represents an unknown or expired plan
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeInternalError represents an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeTooManyRequests represents rate limiting
	ErrorCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// ErrorCodePlanFailed represents a failed agent stage
	ErrorCodePlanFailed ErrorCode = "PLAN_FAILED"

	// ErrorCodeUnavailable represents a server that cannot plan at all
	ErrorCodeUnavailable ErrorCode = "UNAVAILABLE"
)

// APIError represents an API error with status code and message
type APIError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	Fields     []string
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, statusCode int, message string) *APIError {
	return &APIError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Error returns the error message
func (e *APIError) Error() string {
	return e.Message
}

// GetResponse returns the error response
func (e *APIError) GetResponse() ErrorResponse {
	return ErrorResponse{
		Error:   string(e.Code),
		Message: e.Message,
		Fields:  e.Fields,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, fmt.Sprintf(message, args...))
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeNotFound, http.StatusNotFound, fmt.Sprintf(message, args...))
}

// NewTooManyRequestsError creates a rate limiting error
func NewTooManyRequestsError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeTooManyRequests, http.StatusTooManyRequests, fmt.Sprintf(message, args...))
}

// FromError maps a planner error onto an APIError. Validation problems are the
// caller's fault (400); everything raised while agents run is reported as a
// failed upstream (502) with the message shown by the form.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var ve *trip.ValidationError
	if errors.As(err, &ve) {
		e := NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, ve.Message)
		e.Fields = ve.Fields
		return e
	}

	var ce *config.ConfigurationError
	if errors.As(err, &ce) {
		return NewAPIError(ErrorCodeUnavailable, http.StatusServiceUnavailable, ce.Error())
	}

	if errors.Is(err, context.Canceled) {
		return NewAPIError(ErrorCodeInternalError, http.StatusServiceUnavailable, "The request was canceled.")
	}

	return NewAPIError(ErrorCodePlanFailed, http.StatusBadGateway, ErrorMessage(err))
}

// ErrorMessage is the user-facing text for a failed plan.
func ErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}
