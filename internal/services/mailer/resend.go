// Package mailer delivers transactional email through the Resend API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the Resend API endpoint
const DefaultBaseURL = "https://api.resend.com"

// Client is a minimal Resend API client
type Client struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new mailer client
func NewClient(apiKey, sender string, log *zap.Logger) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one email.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if c.apiKey == "" {
		return fmt.Errorf("resend is not configured (missing RESEND_API_KEY)")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.sender,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend API error: status %d: %s", resp.StatusCode, raw)
	}

	var sent sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		return fmt.Errorf("failed to decode resend response: %w", err)
	}

	c.logger.Info("email_sent",
		zap.String("email_id", sent.ID),
		zap.String("subject", subject),
	)

	return nil
}

// SendWelcome delivers the onboarding email for a newly created user.
func (c *Client) SendWelcome(ctx context.Context, to, name string) error {
	html := fmt.Sprintf(`<h1>Welcome to SankPost, %s!</h1>
<p>We're thrilled to have you on board!</p>
<p>Here are a few things you can do to get started:</p>
<ul>
  <li><strong>Explore our features:</strong> Discover how our AI can assist you in your daily social media tasks.</li>
  <li><strong>Join our community:</strong> Connect with other users and share your experiences.</li>
  <li><strong>Need help?</strong> Our support team is here to assist you with any questions you may have.</li>
</ul>
<p>Thank you for choosing SankPost. We look forward to helping you achieve your goals!</p>
<p>Best regards,<br/>The SankPost Team</p>`, name)

	return c.Send(ctx, to, "Welcome to SankPost!", html)
}
