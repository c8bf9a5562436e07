package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/forgespace/notify/internal/ratelimiter"
)

// sendRequest is the JSON body posted to the provider's /emails endpoint.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// sendResponse maps the provider's success body.
type sendResponse struct {
	ID string `json:"id"`
}

// ProviderError is a non-2xx response from the email API.
type ProviderError struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("email provider returned %d (%s): %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("email provider returned %d", e.StatusCode)
}

// APITransport delivers email through a Resend-compatible HTTP API.
// The base URL is injected from config so tests can point to a local server.
type APITransport struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	limiter    *ratelimiter.Limiter
}

// NewAPITransport builds a transport. limiter may be nil.
func NewAPITransport(baseURL, apiKey, from string, timeout time.Duration, limiter *ratelimiter.Limiter) *APITransport {
	return &APITransport{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// Send posts the message and expects a 2xx response with a JSON body
// containing the provider's message id.
func (t *APITransport) Send(ctx context.Context, msg Message) (*Result, error) {
	body, err := json.Marshal(sendRequest{
		From:    t.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "wait for rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProviderError{StatusCode: resp.StatusCode}
		// best effort: the body is informational only
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, perr)
		return nil, perr
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	return &Result{MessageID: out.ID}, nil
}

// compile-time check that APITransport implements Transport
var _ Transport = (*APITransport)(nil)
