// Package facebook provides a minimal client for publishing posts to a
// Facebook page via the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the page publishing operations.
type Client interface {
	// PublishPost publishes a text post to the configured page feed and
	// returns the created post id.
	PublishPost(ctx context.Context, message string) (*PostResponse, error)
}

// PostResponse is the Graph API response to a feed post.
type PostResponse struct {
	ID string `json:"id"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Option configures the Facebook client.
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
	pageID      string
	accessToken string
	baseURL     string
	http        *http.Client
}

// NewClient creates a Graph API client for one page.
func NewClient(pageID, accessToken string, opts ...Option) Client {
	c := &httpClient{
		pageID:      pageID,
		accessToken: accessToken,
		baseURL:     "https://graph.facebook.com/v19.0",
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) PublishPost(ctx context.Context, message string) (*PostResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, eris.New("facebook: empty post message")
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "facebook: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "facebook: publish post")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "facebook: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return nil, eris.Errorf("facebook: status %d: %s (code %d)",
				resp.StatusCode, ge.Error.Message, ge.Error.Code)
		}
		return nil, eris.Errorf("facebook: status %d: %s", resp.StatusCode, string(body))
	}

	var out PostResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "facebook: decode response")
	}
	return &out, nil
}
