package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second

	// maxResponseBytes bounds how much of a reply is read.
	maxResponseBytes = 4 << 20
)

// Config selects the endpoint, credentials and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer and Title are sent as HTTP-Referer and X-Title for OpenRouter
	// attribution.
	Referer string
	Title   string
	Timeout time.Duration
}

// Client sends chat completion requests to one endpoint.
type Client struct {
	cfg   Config
	http  *http.Client
	retry backoff
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts sets how many attempts a request gets in total.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first retry delay and the cap.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.max = ceiling
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// NewClient builds a client. An empty BaseURL selects OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		retry: backoff{
			attempts: defaultRetryAttempts,
			base:     defaultRetryBaseDelay,
			max:      defaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Model returns the configured model id.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}

// Complete sends a system and a user prompt and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.do(ctx, "llm complete", system, user, false)
}

// CompleteJSON is Complete with the provider asked for a JSON object. The
// reply is returned as text; decode it with DecodeJSON.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return c.do(ctx, "llm complete json", system, user, true)
}

// HealthCheck verifies the key and model with a one-line JSON round trip.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("llm health: unexpected reply %s", snippet(content))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, system, user string, jsonMode bool) (string, error) {
	body, err := c.encode(system, user, jsonMode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var lastErr error
	for attempt := 1; ; attempt++ {
		content, err := c.send(ctx, op, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		delay, retry := c.retry.next(ctx, err, attempt)
		if !retry {
			break
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return "", &RequestError{Op: op, Err: lastErr}
}

func (c *Client) encode(system, user string, jsonMode bool) ([]byte, error) {
	system = strings.TrimSpace(system)
	user = strings.TrimSpace(user)
	switch {
	case !c.Configured():
		return nil, ErrMissingAPIKey
	case system == "":
		return nil, errors.New("system prompt required")
	case user == "":
		return nil, errors.New("user prompt required")
	}
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return json.Marshal(req)
}

// send performs one attempt.
func (c *Client) send(ctx context.Context, op string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post (timeout %s): %w", c.cfg.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{Code: resp.StatusCode, Body: snippet(string(raw)), RetryAfter: retryAfter(resp.Header)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return "", fmt.Errorf("provider error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	content, finish, refusal := parsed.answer()
	if content == "" {
		return "", &emptyContentError{Op: op, FinishReason: finish, Refusal: refusal, Snippet: snippet(string(raw))}
	}
	return content, nil
}
