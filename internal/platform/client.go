package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"shelfsync-api/internal/config"
)

// Client is the authenticated JSON client for the ESL cloud platform.
// It obtains bearer tokens from a TokenSource, retries transient
// failures with an attempt-scaled delay, and performs exactly one
// forced token refresh when the platform rejects the credential.
// Expected failures come back inside a Result, never as a panic or a
// bare error.
type Client struct {
	baseURL     string
	http        *http.Client
	tokens      TokenSource
	maxAttempts int
	retryDelay  time.Duration
	invalidCode int
}

// NewClient creates a platform client. The TokenSource is attached
// afterward via SetTokenSource because the token manager itself logs in
// through this client.
func NewClient(cfg config.PlatformConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		http:        &http.Client{Timeout: cfg.HTTPTimeout},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		invalidCode: cfg.TokenInvalidCode,
	}
}

// SetTokenSource attaches the token supplier for authenticated calls.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Login performs the unauthenticated login call and returns the bearer
// token. digest is the one-way hash of the credential secret.
func (c *Client) Login(ctx context.Context, account, digest string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"account":  account,
		"password": digest,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}

	if env.Code != CodeSuccess {
		return "", fmt.Errorf("login rejected: code=%d message=%q", env.Code, env.text())
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}

	return data.Token, nil
}

// Do performs an authenticated platform call.
//
// Transient failures (network error, 5xx) are retried up to the
// configured attempt bound with a delay scaled by attempt number. The
// platform's token-invalid code triggers exactly one invalidate plus
// forced refresh within the same bound; there is no unbounded loop.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, params url.Values) *Result {
	if c.tokens == nil {
		return failure(ErrNoToken)
	}

	force := false
	var last *Result

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * c.retryDelay)
		}

		token, ok := c.tokens.Token(ctx, force)
		if !ok {
			return failure(ErrNoToken)
		}
		force = false

		res, retryable := c.doOnce(ctx, method, path, token, body, params)

		if res.Err == nil && res.Code == c.invalidCode {
			// Credential rejected remotely despite a live local cache.
			log.Printf("[PlatformClient] token rejected on %s %s, forcing refresh", method, path)
			c.tokens.Invalidate(ctx)
			force = true
			last = res
			continue
		}

		if retryable {
			log.Printf("[PlatformClient] attempt %d/%d failed on %s %s: %s",
				attempt, c.maxAttempts, method, path, res.Message)
			last = res
			continue
		}

		return res
	}

	return last
}

// doOnce performs a single HTTP exchange. The second return value marks
// the failure as transient (worth retrying).
func (c *Client) doOnce(ctx context.Context, method, path, token string, body interface{}, params url.Values) (*Result, bool) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return failure(fmt.Errorf("failed to encode request body: %w", err)), false
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return failure(fmt.Errorf("failed to build request: %w", err)), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return failure(fmt.Errorf("request failed: %w", err)), true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return failure(fmt.Errorf("platform returned HTTP %d", resp.StatusCode)), true
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return failure(fmt.Errorf("failed to decode response: %w", err)), false
	}

	return &Result{Code: env.Code, Message: env.text(), Data: env.Data}, false
}
