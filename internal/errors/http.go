package errors

import (
	"net/http"
)

// ErrorResponse is the body returned for every failed API request
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

var statusMapping = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrInvalidState, http.StatusConflict},
	{ErrValidation, http.StatusBadRequest},
	{ErrInvalidOperation, http.StatusBadRequest},
	{ErrHTTPClient, http.StatusBadGateway},
}

// HTTPStatusFromErr maps a marked error to an HTTP status code
func HTTPStatusFromErr(err error) int {
	for _, m := range statusMapping {
		if Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the response body for err. Internal error text is
// only exposed for client errors; 5xx responses carry the hint alone.
func NewErrorResponse(err error) (int, ErrorResponse) {
	status := HTTPStatusFromErr(err)

	display := GetHint(err)
	if display == "" {
		if status >= http.StatusInternalServerError {
			display = "An unexpected error occurred"
		} else {
			display = err.Error()
		}
	}

	resp := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: display,
			Details: GetDetails(err),
		},
	}
	if status < http.StatusInternalServerError {
		resp.Error.InternalError = err.Error()
	}
	return status, resp
}
