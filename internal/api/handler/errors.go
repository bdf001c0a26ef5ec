package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/tourney/internal/api/apierr"
)

// Request bodies are small JSON documents
const maxBodyBytes = 1 << 20

// WriteError writes err as a JSON error envelope
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates a 400 INVALID_REQUEST error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeJSON reads a JSON request body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		WriteError(w, NewInvalidRequestError("Request body is required"))
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, NewInvalidRequestError("Request body is too large"))
		} else {
			WriteError(w, NewInvalidRequestError("Invalid request body"))
		}
	}
	return false
}
