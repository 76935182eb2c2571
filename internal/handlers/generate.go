package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/services/generation"
)

// GenerateHandler exposes the raw generation proxy
type GenerateHandler struct {
	proxy  *generation.Proxy
	logger *zap.Logger
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(proxy *generation.Proxy, log *zap.Logger) *GenerateHandler {
	return &GenerateHandler{proxy: proxy, logger: log}
}

// RegisterRoutes registers generation routes on the given router
func (h *GenerateHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.Generate).Methods("POST")
}

// Generate proxies one generation request upstream and maps the result onto
// the flat wire contract: {text}, {text, model} when an alternate served it,
// or {error} / {error, upstream} on failure.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.proxy.Generate(r.Context(), &req)
	if err != nil {
		respondGenerationError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondGenerationError maps a proxy error onto the wire. Rate limit
// responses carry the raw upstream body alongside the guidance message.
func respondGenerationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var genErr *generation.Error
	if !errors.As(err, &genErr) {
		logger.Error("generation_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if genErr.Status >= http.StatusInternalServerError {
		logger.Error("generation_failed", zap.Int("status", genErr.Status), zap.Error(err))
	}

	if genErr.Upstream != "" {
		respondJSON(w, genErr.Status, map[string]any{
			"error":    genErr.Message,
			"upstream": genErr.Upstream,
		})
		return
	}
	respondError(w, genErr.Status, genErr.Message)
}
