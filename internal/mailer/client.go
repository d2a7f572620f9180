package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/atelierline/agency-backend/config"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client talks to the external email provider's HTTP API. The provider
// documents a hard 2 req/s ceiling; the limiter here is the floor-level
// guard under that ceiling, independent of whatever pacing the caller
// adds between items.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter

	backoffInitial time.Duration
	backoffMax     time.Duration
	maxRetries     int
}

func New(cfg config.MailerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(2), 1),
		backoffInitial: 500 * time.Millisecond,
		backoffMax:     5 * time.Second,
		maxRetries:     3,
	}
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Send posts one message. A 429 from the provider is retried with
// exponential backoff up to maxRetries; any other failure, or exhausting
// the retries, surfaces as this one send's error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.baseURL == "" {
		return fmt.Errorf("mailer base url not configured")
	}

	backoff := c.backoffInitial
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retryable, err := c.post(ctx, msg)
		if err == nil {
			return nil
		}
		if !retryable || attempt >= c.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.backoffMax {
			backoff = c.backoffMax
		}
	}
}

func (c *Client) post(ctx context.Context, msg Message) (retryable bool, err error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, fmt.Errorf("provider rate limited (429)")
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	var sr sendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &sr); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		if !sr.Success {
			return false, fmt.Errorf("send rejected: %s", sr.Error)
		}
	}

	return false, nil
}
