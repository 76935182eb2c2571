package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/models"
	"github.com/sankpost/sankpost-api/internal/services/history"
	"github.com/sankpost/sankpost-api/internal/services/ledger"
)

func newContentHandler(t *testing.T, users *stubUserStore, contents *stubContentStore, upstream http.HandlerFunc) *ContentHandler {
	t.Helper()
	proxy := newUpstreamProxy(t, upstream)
	ledgerSvc := ledger.NewService(users, nil, zap.NewNop())
	historySvc := history.NewService(contents, zap.NewNop())
	return NewContentHandler(proxy, ledgerSvc, historySvc, zap.NewNop())
}

func upstreamText(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, text)
	}
}

func TestContentHandler_Unauthorized(t *testing.T) {
	t.Parallel()

	h := newContentHandler(t, newStubUserStore(), &stubContentStore{}, upstreamText("x"))

	req := httptest.NewRequest("POST", "/content", strings.NewReader(`{"contentType":"caption","topic":"t"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a user, got %d", rec.Code)
	}
}

func TestContentHandler_InvalidContentType(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = 50
	h := newContentHandler(t, users, &stubContentStore{}, upstreamText("x"))

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"tweet","topic":"go"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown content type, got %d", rec.Code)
	}
}

func TestContentHandler_MissingTopic(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = 50
	h := newContentHandler(t, users, &stubContentStore{}, upstreamText("x"))

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"short-post"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing topic, got %d", rec.Code)
	}
}

func TestContentHandler_CaptionRequiresImage(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = 50
	h := newContentHandler(t, users, &stubContentStore{}, upstreamText("x"))

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"caption","topic":"sunset"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a caption without an image, got %d", rec.Code)
	}
}

func TestContentHandler_NotEnoughPoints(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = models.GenerationCost - 1
	h := newContentHandler(t, users, &stubContentStore{}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Upstream must not be called when the balance cannot cover the cost")
	})

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"short-post","topic":"go"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] != "Not enough points" {
		t.Errorf("Unexpected error message: %q", body["error"])
	}
}

func TestContentHandler_ShortPostSplitsAndDebits(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = 50
	contents := &stubContentStore{}
	h := newContentHandler(t, users, contents,
		upstreamText("POST1: one\nPOST2: two\nPOST3: three\nPOST4: four"))

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"short-post","topic":"go concurrency"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CreateContentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Items) != 4 {
		t.Fatalf("Expected 4 items, got %d: %v", len(resp.Items), resp.Items)
	}
	if resp.Items[0] != "one" || resp.Items[3] != "four" {
		t.Errorf("Unexpected item order: %v", resp.Items)
	}
	if resp.Points != 45 {
		t.Errorf("Expected 45 points remaining, got %d", resp.Points)
	}

	// History stores multi-item output as a JSON array.
	if len(contents.records) != 1 {
		t.Fatalf("Expected 1 history record, got %d", len(contents.records))
	}
	var storedItems []string
	if err := json.Unmarshal([]byte(contents.records[0].Content), &storedItems); err != nil {
		t.Fatalf("Expected stored content to be a JSON array: %v", err)
	}
	if len(storedItems) != 4 {
		t.Errorf("Expected 4 stored items, got %d", len(storedItems))
	}
	if contents.records[0].Prompt != "go concurrency" {
		t.Errorf("Expected the user topic recorded as prompt, got %q", contents.records[0].Prompt)
	}
}

func TestContentHandler_ProfessionalPostSingleItem(t *testing.T) {
	t.Parallel()

	users := newStubUserStore()
	users.points["p1"] = 10
	contents := &stubContentStore{}
	h := newContentHandler(t, users, contents, upstreamText("A long professional post."))

	req := withUser(httptest.NewRequest("POST", "/content",
		strings.NewReader(`{"contentType":"professional-post","topic":"hiring"}`)), "p1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp CreateContentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0] != "A long professional post." {
		t.Errorf("Expected single raw item, got %v", resp.Items)
	}
	// Single-item output is stored raw, not JSON wrapped.
	if contents.records[0].Content != "A long professional post." {
		t.Errorf("Expected raw stored content, got %q", contents.records[0].Content)
	}
}

func TestValidateImageDataURL(t *testing.T) {
	t.Parallel()

	bigPayload := strings.Repeat("A", (MaxImageBytes/3)*4+8)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid small image", input: "data:image/png;base64,aGVsbG8=", wantErr: false},
		{name: "not a data url", input: "https://example.com/cat.png", wantErr: true},
		{name: "not base64 encoded", input: "data:image/png,rawbytes", wantErr: true},
		{name: "oversized payload", input: "data:image/png;base64," + bigPayload, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateImageDataURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateImageDataURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
