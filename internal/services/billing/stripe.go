// Package billing integrates with Stripe's REST API for hosted checkout
// and subscription lifecycle events. Requests are form-encoded with Bearer
// auth, matching Stripe's wire format.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is Stripe's API endpoint
const DefaultBaseURL = "https://api.stripe.com/v1"

// ErrNotConfigured is returned when no secret key is configured.
var ErrNotConfigured = fmt.Errorf("stripe is not configured (missing STRIPE_SECRET_KEY)")

// Client is a minimal Stripe API client
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Stripe client. The secret key may be empty; calls
// will then fail with ErrNotConfigured so the handler can surface a
// configuration error.
func NewClient(secretKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}

// NewClientWithBaseURL creates a Stripe client against a non-default API
// endpoint. Used for tests and API mocks.
func NewClientWithBaseURL(secretKey, baseURL string, log *zap.Logger) *Client {
	c := NewClient(secretKey, log)
	c.baseURL = baseURL
	return c
}

// Configured reports whether a secret key is present.
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

// CheckoutSession is the subset of Stripe's checkout session object we use
type CheckoutSession struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession creates a subscription-mode hosted checkout session
// with a single line item at quantity 1. The user's external identity id is
// attached as the client reference so the webhook can reconcile the
// purchase later.
func (c *Client) CreateCheckoutSession(ctx context.Context, priceID, userID, successURL, cancelURL string) (*CheckoutSession, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Add("mode", "subscription")
	form.Add("payment_method_types[0]", "card")
	form.Add("line_items[0][price]", priceID)
	form.Add("line_items[0][quantity]", "1")
	form.Add("success_url", successURL)
	form.Add("cancel_url", cancelURL)
	form.Add("client_reference_id", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call stripe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var stripeErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&stripeErr); decodeErr == nil && stripeErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe API error: %s", stripeErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe API error: status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	c.logger.Info("created_checkout_session",
		zap.String("session_id", session.ID),
		zap.String("price_id", priceID),
	)

	return &session, nil
}

// SuccessURL builds the post-payment redirect from the public base URL.
// Stripe substitutes the session id into the template placeholder.
func SuccessURL(baseURL string) string {
	return baseURL + "/generate?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL builds the checkout-abandoned redirect from the public base URL.
func CancelURL(baseURL string) string {
	return baseURL + "/pricing"
}
