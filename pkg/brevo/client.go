// Package brevo provides a client for the Brevo transactional email API,
// used for newsletter confirmations and sends.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the transactional email operations.
type Client interface {
	// SendEmail sends one transactional email and returns the message id.
	SendEmail(ctx context.Context, email Email) (*SendResponse, error)
}

// Contact is one sender or recipient.
type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Email is a transactional email payload.
type Email struct {
	Sender      Contact   `json:"sender"`
	To          []Contact `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

// SendResponse is the Brevo API response to a send.
type SendResponse struct {
	MessageID string `json:"messageId"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Option configures the Brevo client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Brevo client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.brevo.com",
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendEmail(ctx context.Context, email Email) (*SendResponse, error) {
	if len(email.To) == 0 {
		return nil, eris.New("brevo: no recipients")
	}

	payload, err := json.Marshal(email)
	if err != nil {
		return nil, eris.Wrap(err, "brevo: marshal email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v3/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "brevo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "brevo: send email")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "brevo: read response body")
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
			return nil, eris.Errorf("brevo: status %d: %s (%s)", resp.StatusCode, ae.Message, ae.Code)
		}
		return nil, eris.Errorf("brevo: status %d: %s", resp.StatusCode, string(body))
	}

	var out SendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "brevo: decode response")
	}
	return &out, nil
}
