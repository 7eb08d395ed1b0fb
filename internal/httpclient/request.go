package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError represents an error response from the broker's API.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.auth != nil {
		parsedURL, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("httpclient: parse base url: %w", err)
		}
		signaturePath := parsedURL.Path + path

		headers, err := c.auth.SignRequest(method, signaturePath)
		if err != nil {
			return nil, fmt.Errorf("httpclient: sign request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		token, err := c.auth.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("httpclient: access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			RetryAfter: retryAfter(resp),
			Body:       respBody,
		}
	}

	return respBody, nil
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// doWithRetry performs a request with exponential backoff and jitter,
// retrying only responses APIError.IsRetryable reports true for.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", jitter, "path", path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		respBody, err := c.doRequest(ctx, method, path, query, body)
		if err == nil {
			return respBody, nil
		}

		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("httpclient: max retries exceeded: %w", lastErr)
}

// Get performs a GET request with retries and decodes the JSON
// response into result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	respBody, err := c.doWithRetry(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("httpclient: unmarshal response: %w", err)
	}
	return nil
}

// Post performs a POST request (not retried, since most POSTs are not
// idempotent) with a JSON-encoded payload and decodes the JSON
// response into result.
func (c *Client) Post(ctx context.Context, path string, payload, result any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpclient: marshal request: %w", err)
	}
	respBody, err := c.doRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("httpclient: unmarshal response: %w", err)
	}
	return nil
}

// Delete performs a DELETE request, discarding any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return err
}
