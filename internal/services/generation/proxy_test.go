package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// upstreamRequest is the subset of the chat completion request the fake
// upstream inspects.
type upstreamRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

// fakeUpstream is a scriptable chat-completion endpoint. The respond func
// gets the 1-based call number and the decoded request.
type fakeUpstream struct {
	mu      sync.Mutex
	calls   int
	models  []string
	respond func(call int, req *upstreamRequest, w http.ResponseWriter)
}

func (f *fakeUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upstreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls++
		call := f.calls
		f.models = append(f.models, req.Model)
		f.mu.Unlock()

		f.respond(call, &req, w)
	}
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUpstream) seenModels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.models))
	copy(out, f.models)
	return out
}

func respondText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, text)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"api_error"}}`, message)
}

// newTestProxy builds a proxy against the fake upstream with an instant,
// recording sleep so retry tests don't actually wait.
func newTestProxy(t *testing.T, serverURL string, cfg Config) (*Proxy, *[]time.Duration) {
	t.Helper()

	cfg.APIKey = "test-key"
	cfg.BaseURL = serverURL
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "test/primary"
	}

	p := NewProxy(cfg, zap.NewNop(), false)

	var delays []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return p, &delays
}

func TestGenerate_MissingPrompt(t *testing.T) {
	t.Parallel()

	p, _ := newTestProxy(t, "http://localhost:0", Config{})

	_, err := p.Generate(context.Background(), &Request{})
	genErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if genErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", genErr.Status)
	}
	if genErr.Message != "Missing prompt" {
		t.Errorf("Expected 'Missing prompt', got %q", genErr.Message)
	}
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		respondText(w, "generated text")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, delays := newTestProxy(t, server.URL, Config{})

	result, err := p.Generate(context.Background(), &Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "generated text" {
		t.Errorf("Expected generated text, got %q", result.Text)
	}
	if result.Model != "" {
		t.Errorf("Expected no model tag on primary success, got %q", result.Model)
	}
	if upstream.callCount() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", upstream.callCount())
	}
	if len(*delays) != 0 {
		t.Errorf("Expected no backoff sleeps, got %v", *delays)
	}
}

func TestGenerate_ModelSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		req       Request
		wantModel string
	}{
		{
			name:      "default model",
			cfg:       Config{DefaultModel: "test/primary"},
			req:       Request{Prompt: "p"},
			wantModel: "test/primary",
		},
		{
			name:      "request override wins",
			cfg:       Config{DefaultModel: "test/primary"},
			req:       Request{Prompt: "p", Model: "test/override"},
			wantModel: "test/override",
		},
		{
			name:      "image request prefers image model",
			cfg:       Config{DefaultModel: "test/primary", ImageModel: "test/vision"},
			req:       Request{Prompt: "p", ImageDataURL: "data:image/png;base64,aGk="},
			wantModel: "test/vision",
		},
		{
			name:      "image request without image model keeps default",
			cfg:       Config{DefaultModel: "test/primary"},
			req:       Request{Prompt: "p", ImageDataURL: "data:image/png;base64,aGk="},
			wantModel: "test/primary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
				respondText(w, "ok")
			}}
			server := httptest.NewServer(upstream.handler())
			defer server.Close()

			p, _ := newTestProxy(t, server.URL, tt.cfg)
			if _, err := p.Generate(context.Background(), &tt.req); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			models := upstream.seenModels()
			if len(models) != 1 || models[0] != tt.wantModel {
				t.Errorf("Expected upstream model %q, got %v", tt.wantModel, models)
			}
		})
	}
}

func TestGenerate_ImageRequestSendsTwoPartMessage(t *testing.T) {
	t.Parallel()

	var content json.RawMessage
	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		if len(req.Messages) > 0 {
			content = req.Messages[0].Content
		}
		respondText(w, "ok")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{})
	_, err := p.Generate(context.Background(), &Request{
		Prompt:       "describe this",
		ImageDataURL: "data:image/png;base64,aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url,omitempty"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		t.Fatalf("Expected array content for image message, got %s", content)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 content parts, got %d", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "describe this" {
		t.Errorf("Expected first part to carry the prompt, got %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("Expected second part to carry the image data URL, got %+v", parts[1])
	}
}

func TestGenerate_RetriesOn429ThenSucceeds(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		if call <= 2 {
			respondError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		respondText(w, "third time lucky")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, delays := newTestProxy(t, server.URL, Config{})

	result, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "third time lucky" {
		t.Errorf("Expected success after retries, got %q", result.Text)
	}
	if upstream.callCount() != 3 {
		t.Errorf("Expected 3 upstream calls, got %d", upstream.callCount())
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("Expected %d backoff sleeps, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("Expected backoff %d to be %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestGenerate_RetriesOn503(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		if call == 1 {
			respondError(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		}
		respondText(w, "recovered")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{})

	result, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("Expected recovery after 503, got %q", result.Text)
	}
	if upstream.callCount() != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", upstream.callCount())
	}
}

func TestGenerate_PersistentRateLimitUsesFallbackThenFails(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		respondError(w, http.StatusTooManyRequests, "rate limited hard")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{FallbackModel: "test/fallback"})

	_, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	genErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if genErr.Status != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", genErr.Status)
	}
	if genErr.Message != RateLimitGuidance {
		t.Errorf("Expected rate limit guidance, got %q", genErr.Message)
	}
	if genErr.Upstream == "" {
		t.Error("Expected raw upstream body alongside the guidance")
	}

	// 1 initial + 2 retries on the primary, then 1 fallback attempt.
	if upstream.callCount() != 4 {
		t.Errorf("Expected 4 upstream calls, got %d", upstream.callCount())
	}
	models := upstream.seenModels()
	if models[len(models)-1] != "test/fallback" {
		t.Errorf("Expected last attempt on the fallback model, got %v", models)
	}
}

func TestGenerate_FallbackSucceedsAfterThrottledPrimary(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		if req.Model == "test/fallback" {
			respondText(w, "fallback text")
			return
		}
		respondError(w, http.StatusTooManyRequests, "rate limited")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{FallbackModel: "test/fallback"})

	result, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "fallback text" {
		t.Errorf("Expected fallback text, got %q", result.Text)
	}
}

func TestGenerate_ModelUnavailableSearchesAlternates(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		switch req.Model {
		case "google/gemini-flash-1.5":
			respondText(w, "alternate text")
		default:
			respondError(w, http.StatusNotFound, "No endpoints found for this model")
		}
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{FallbackModel: "test/fallback"})

	result, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "alternate text" {
		t.Errorf("Expected alternate text, got %q", result.Text)
	}
	if result.Model != "google/gemini-flash-1.5" {
		t.Errorf("Expected result tagged with the serving model, got %q", result.Model)
	}

	// The fallback is searched first, then the known stable list in order.
	models := upstream.seenModels()
	wantOrder := []string{"test/primary", "test/fallback", "google/gemini-2.0-flash-exp:free", "google/gemini-flash-1.5"}
	if len(models) != len(wantOrder) {
		t.Fatalf("Expected %d calls %v, got %v", len(wantOrder), wantOrder, models)
	}
	for i, m := range wantOrder {
		if models[i] != m {
			t.Errorf("Expected call %d on %q, got %q", i, m, models[i])
		}
	}
}

func TestGenerate_ModelUnavailableAllAlternatesFail(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		respondError(w, http.StatusNotFound, "No endpoints found for this model")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{})

	_, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	genErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if genErr.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", genErr.Status)
	}
}

func TestGenerate_NonRetryableErrorPassedThrough(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		respondError(w, http.StatusBadRequest, "invalid request to upstream")
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, delays := newTestProxy(t, server.URL, Config{FallbackModel: "test/fallback"})

	_, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	genErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if genErr.Status != http.StatusBadRequest {
		t.Errorf("Expected upstream status 400, got %d", genErr.Status)
	}
	if upstream.callCount() != 1 {
		t.Errorf("Expected a single attempt for a non-retryable error, got %d", upstream.callCount())
	}
	if len(*delays) != 0 {
		t.Errorf("Expected no backoff sleeps, got %v", *delays)
	}
}

func TestGenerate_EmptyChoicesYieldsEmptyText(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{respond: func(call int, req *upstreamRequest, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","choices":[]}`)
	}}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	p, _ := newTestProxy(t, server.URL, Config{})

	result, err := p.Generate(context.Background(), &Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "" {
		t.Errorf("Expected empty text for empty choices, got %q", result.Text)
	}
}
