package generation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

// RateLimitGuidance is the message returned when the upstream stays
// rate-limited after retries and fallback.
const RateLimitGuidance = "Rate limited upstream. Please retry shortly, connect your own provider key, or set OPENROUTER_FALLBACK_MODEL."

// Error is a normalized generation failure carrying an HTTP-style status
// and, when available, the raw upstream error body for diagnostics.
type Error struct {
	Status   int
	Message  string
	Upstream string
}

func (e *Error) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("generation failed (status %d): %s: %s", e.Status, e.Message, e.Upstream)
	}
	return fmt.Sprintf("generation failed (status %d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by a generation or upstream API
// error, or 500 when the error carries none (network failure, bad JSON).
func StatusOf(err error) int {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Status
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UpstreamBody extracts the raw upstream error body when the error came
// from the upstream API.
func UpstreamBody(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if raw := apiErr.RawJSON(); raw != "" {
			return raw
		}
		return apiErr.Error()
	}
	return ""
}

// isRetryable reports whether the upstream response warrants a retry:
// throttling or temporary unavailability.
func isRetryable(err error) bool {
	switch StatusOf(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// isModelUnavailable matches the upstream's not-found condition for a model
// slug that has no serving endpoint.
func isModelUnavailable(err error) bool {
	if StatusOf(err) != http.StatusNotFound {
		return false
	}
	body := UpstreamBody(err)
	if body == "" {
		body = err.Error()
	}
	return strings.Contains(strings.ToLower(body), "no endpoints found")
}
