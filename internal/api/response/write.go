package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 whose Location points at the new resource
func Created(w http.ResponseWriter, location string, data any) {
	w.Header().Set("Location", location)
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 with an empty body
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
