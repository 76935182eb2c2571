package generation

import (
	"context"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/logger"
)

const (
	// DefaultTimeout is the per-attempt timeout for upstream calls
	DefaultTimeout = 60 * time.Second
	// DefaultBackoffBase is the first retry delay; it doubles per attempt
	DefaultBackoffBase = 1 * time.Second
	// MaxRetries is the number of additional attempts after the first
	MaxRetries = 2
)

// knownStableModels are tried, in order, when the requested model has no
// serving endpoint upstream.
var knownStableModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"google/gemini-flash-1.5",
	"google/gemini-flash-1.5-8b",
}

// Config holds proxy configuration
type Config struct {
	APIKey        string
	BaseURL       string
	DefaultModel  string
	ImageModel    string
	FallbackModel string
}

// Request is one content generation request
type Request struct {
	Prompt       string `json:"prompt" validate:"required"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Result is a successful generation. Model is set only when an alternate
// model served the request instead of the one originally selected.
type Result struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// Proxy brokers generation requests to the upstream chat-completion API,
// applying retry, backoff, fallback and alternate-model policy.
type Proxy struct {
	client      openai.Client
	cfg         Config
	logger      *zap.Logger
	debugMode   bool
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewProxy creates a new generation proxy. Retries are handled by the proxy
// itself, so the SDK's built-in retry is disabled.
func NewProxy(cfg Config, log *zap.Logger, debugMode bool) *Proxy {
	httpClient := &http.Client{Timeout: DefaultTimeout}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &Proxy{
		client:      client,
		cfg:         cfg,
		logger:      log,
		debugMode:   debugMode,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// effectiveModel selects the model for a request: the per-request override
// when present, else the configured default; image requests prefer the
// image-capable model when one is configured.
func (p *Proxy) effectiveModel(req *Request) string {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}
	if req.ImageDataURL != "" && p.cfg.ImageModel != "" {
		model = p.cfg.ImageModel
	}
	return model
}

func (p *Proxy) buildMessages(req *Request) []openai.ChatCompletionMessageParamUnion {
	if req.ImageDataURL == "" {
		return []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		}
	}
	return []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: req.ImageDataURL,
			}),
		}),
	}
}

// attempt performs a single upstream call with the given model.
func (p *Proxy) attempt(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	})
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("model", model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", err
	}

	// Default to empty text when the response shape is unexpected.
	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("model", model),
			zap.Int("response_length", len(text)),
			zap.String("response_preview", logger.PreviewPrompt(text, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return text, nil
}

// attemptWithRetry calls attempt, retrying on 429/503 with exponential
// backoff (base delay doubling per retry) up to MaxRetries extra attempts.
func (p *Proxy) attemptWithRetry(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	text, err := p.attempt(ctx, model, messages)
	for retry := 0; retry < MaxRetries && err != nil && isRetryable(err); retry++ {
		delay := p.backoffBase << uint(retry)
		if p.logger != nil {
			p.logger.Warn("upstream_retry",
				zap.String("model", model),
				zap.Int("attempt", retry+1),
				zap.Duration("delay", delay),
				zap.Int("upstream_status", StatusOf(err)),
			)
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return "", &Error{Status: http.StatusInternalServerError, Message: sleepErr.Error()}
		}
		text, err = p.attempt(ctx, model, messages)
	}
	return text, err
}

// Generate runs the full attempt cascade: primary with bounded retries,
// configured fallback on persistent throttling, then the alternate-model
// search when the upstream has no endpoint for the requested slug.
func (p *Proxy) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Prompt == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Missing prompt"}
	}

	model := p.effectiveModel(req)
	messages := p.buildMessages(req)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("model", model),
			zap.Bool("has_image", req.ImageDataURL != ""),
			zap.Int("prompt_length", len(req.Prompt)),
			zap.String("prompt_preview", logger.PreviewPrompt(req.Prompt, true)),
		)
	}

	text, err := p.attemptWithRetry(ctx, model, messages)

	// One extra attempt on the configured fallback if still throttled.
	if err != nil && isRetryable(err) && p.cfg.FallbackModel != "" {
		text, err = p.attempt(ctx, p.cfg.FallbackModel, messages)
	}

	if err == nil {
		return &Result{Text: text}, nil
	}

	switch {
	case StatusOf(err) == http.StatusTooManyRequests:
		return nil, &Error{
			Status:   http.StatusTooManyRequests,
			Message:  RateLimitGuidance,
			Upstream: UpstreamBody(err),
		}

	case isModelUnavailable(err):
		if result := p.searchAlternates(ctx, messages); result != nil {
			return result, nil
		}
	}

	if body := UpstreamBody(err); body != "" {
		return nil, &Error{Status: StatusOf(err), Message: body}
	}
	return nil, &Error{Status: http.StatusInternalServerError, Message: err.Error()}
}

// searchAlternates tries an ordered list of alternate models: the configured
// fallback first, then known-stable slugs. Individual attempt failures are
// swallowed; the first success wins and is tagged with its model.
func (p *Proxy) searchAlternates(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) *Result {
	var alternates []string
	if p.cfg.FallbackModel != "" {
		alternates = append(alternates, p.cfg.FallbackModel)
	}
	alternates = append(alternates, knownStableModels...)

	for _, alt := range alternates {
		text, err := p.attempt(ctx, alt, messages)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("alternate_model_failed",
					zap.String("model", alt),
					zap.Error(err),
				)
			}
			continue
		}
		return &Result{Text: text, Model: alt}
	}
	return nil
}
