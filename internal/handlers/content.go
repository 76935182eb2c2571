package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/models"
	"github.com/sankpost/sankpost-api/internal/request"
	"github.com/sankpost/sankpost-api/internal/services/generation"
	"github.com/sankpost/sankpost-api/internal/services/history"
	"github.com/sankpost/sankpost-api/internal/services/ledger"
)

const (
	// MaxImageBytes caps the decoded size of an uploaded image (2MB)
	MaxImageBytes = 2 << 20
)

// ContentHandler orchestrates a full content generation: template, upstream
// call, history record and point debit.
type ContentHandler struct {
	proxy    *generation.Proxy
	ledger   *ledger.Service
	history  *history.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(proxy *generation.Proxy, ledgerSvc *ledger.Service, historySvc *history.Service, log *zap.Logger) *ContentHandler {
	return &ContentHandler{
		proxy:    proxy,
		ledger:   ledgerSvc,
		history:  historySvc,
		validate: validator.New(),
		logger:   log,
	}
}

// RegisterRoutes registers content routes on the given router
func (h *ContentHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/content", h.Create).Methods("POST")
}

// CreateContentRequest represents an orchestrated generation request
type CreateContentRequest struct {
	ContentType  string `json:"contentType" validate:"required"`
	Topic        string `json:"topic" validate:"required,min=1,max=10000"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
}

// CreateContentResponse carries the generated items and the caller's
// remaining balance. Model is set only when an alternate model served the
// request.
type CreateContentResponse struct {
	Items  []string `json:"items"`
	Points int      `json:"points"`
	Model  string   `json:"model,omitempty"`
}

// Create handles POST /content
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing contentType or topic")
		return
	}
	if err := models.ValidateContentType(req.ContentType); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	contentType := models.ContentType(req.ContentType)

	if contentType == models.ContentTypeCaption {
		if req.ImageDataURL == "" {
			respondError(w, http.StatusBadRequest, "Caption content requires an image")
			return
		}
		if err := validateImageDataURL(req.ImageDataURL); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx := r.Context()

	// Balance gate before spending an upstream call. The authoritative
	// check is the conditional debit below.
	if h.ledger.GetPoints(ctx, user.ProviderID) < models.GenerationCost {
		respondError(w, http.StatusForbidden, "Not enough points")
		return
	}

	result, err := h.proxy.Generate(ctx, &generation.Request{
		Prompt:       models.BuildPrompt(contentType, req.Topic),
		ImageDataURL: req.ImageDataURL,
	})
	if err != nil {
		respondGenerationError(w, err, h.logger)
		return
	}

	items := []string{result.Text}
	stored := result.Text
	if contentType == models.ContentTypeShortPost {
		items = models.SplitPosts(result.Text)
		if encoded, marshalErr := json.Marshal(items); marshalErr == nil {
			stored = string(encoded)
		}
	}

	h.history.Append(ctx, user.ProviderID, stored, req.Topic, contentType)

	points := 0
	debited, err := h.ledger.Debit(ctx, user.ProviderID, models.GenerationCost)
	switch {
	case errors.Is(err, ledger.ErrInsufficientPoints):
		// Lost the race against a concurrent generation. The upstream call
		// already happened; report the result with the current balance.
		points = h.ledger.GetPoints(ctx, user.ProviderID)
	case err != nil:
		points = h.ledger.GetPoints(ctx, user.ProviderID)
	default:
		points = debited.Points
	}

	respondJSON(w, http.StatusOK, CreateContentResponse{
		Items:  items,
		Points: points,
		Model:  result.Model,
	})
}

// validateImageDataURL checks the data URL's shape and decoded size.
func validateImageDataURL(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return errors.New("imageDataUrl must be an image data URL")
	}
	idx := strings.Index(dataURL, ";base64,")
	if idx < 0 {
		return errors.New("imageDataUrl must be base64 encoded")
	}
	payload := dataURL[idx+len(";base64,"):]
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return errors.New("image exceeds the 2MB size limit")
	}
	return nil
}
