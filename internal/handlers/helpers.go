package handlers

import (
	"encoding/json"
	"net/http"
)

// respondJSON sends a JSON response with the exact shape the caller built.
// Endpoints here are consumed by a frontend that expects flat payloads, so
// there is no envelope.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError sends an error JSON response of the form {"error": message}
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}
