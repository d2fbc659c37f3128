// Package submission delivers completed applications to the intake API.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/applykit/formflow/pkg/model"
	"github.com/applykit/formflow/pkg/navigator"
)

// Client posts completed forms as JSON to a single endpoint. It satisfies
// navigator.Submitter.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ navigator.Submitter = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a submitter for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	FormID  string          `json:"formId"`
	Answers model.AnswerMap `json:"answers"`
}

type submitResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
}

// Submit posts the answer map and interprets the API's success envelope.
// Any transport failure, non-2xx status, or success=false payload is an
// error, which keeps the navigator on the last step so the applicant can
// retry without losing answers.
func (c *Client) Submit(ctx context.Context, formID string, answers model.AnswerMap) error {
	body, err := json.Marshal(submitRequest{FormID: formID, Answers: answers})
	if err != nil {
		return fmt.Errorf("submission: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submission: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submission: post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("submission: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submission: %s returned status %d", c.endpoint, resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("submission: decode response: %w", err)
	}
	if !parsed.Success {
		msg := parsed.ErrorMessage
		if msg == "" {
			msg = "submission rejected"
		}
		return fmt.Errorf("submission: %s", msg)
	}
	return nil
}
