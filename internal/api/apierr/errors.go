package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/tourney/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes produced by the transport layer itself. Domain errors carry
// their own codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeNotFound       = "NOT_FOUND"
	CodeInternalError  = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusFor returns the HTTP status used for an error category
func StatusFor(category model.Category) int {
	switch category {
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryConflict:
		return http.StatusConflict
	case model.CategoryRuleViolation:
		return http.StatusUnprocessableEntity
	case model.CategoryForbidden:
		return http.StatusForbidden
	case model.CategoryUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Domain errors keep their code; the message includes any wrapped detail
	var de *model.Error
	if errors.As(err, &de) {
		return &httpError{StatusFor(de.Category), APIError{de.Code, err.Error()}}
	}

	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewNotFoundError creates an error for an unknown route
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Route not found"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
