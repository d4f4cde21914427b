// Package clickup is the rate-limited client for the ClickUp REST API.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clickup-bridge/internal/config"
	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
	"clickup-bridge/pkg/metrics"

	"golang.org/x/time/rate"
)

// APIError is a non-2xx response from the API. The body shape is
// {"err": "...", "ECODE": "..."}.
type APIError struct {
	StatusCode int
	Message    string
	ECode      string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clickup api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("clickup api error: %s (status %d)", e.Message, e.StatusCode)
}

// Reason returns the provider's error string, or a fallback when the body
// carried none
func (e *APIError) Reason() string {
	if e.Message == "" {
		return "Unknown error"
	}
	return e.Message
}

// Client calls the ClickUp API. Outbound requests share a token-bucket
// limiter sized from the configured requests-per-minute ceiling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a client from configuration
func NewClient(cfg *config.ClickUpConfig, log logger.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 100
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		logger:     log,
		metrics:    metrics.GetGlobal(),
	}
}

// do performs one API request. Transport failures come back as retryable
// external errors; non-2xx responses come back as non-retryable errors
// wrapping an *APIError.
func (c *Client) do(ctx context.Context, method, path, operation string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRateLimit, errors.CodeRateLimit, "rate limiter wait aborted")
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "encode request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "build request")
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRemoteRequest(method, operation, 0, time.Since(start))
		return errors.ExternalError("clickup", err).SetRetryable(true)
	}
	defer resp.Body.Close()

	c.metrics.RecordRemoteRequest(method, operation, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ExternalError("clickup", err).SetRetryable(true)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Err   string `json:"err"`
			ECode string `json:"ECODE"`
		}
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Message = parsed.Err
			apiErr.ECode = parsed.ECode
		}
		c.logger.Warn("clickup api request failed",
			"operation", operation,
			"status", resp.StatusCode,
			"error", apiErr.Message,
		)
		return errors.Wrap(apiErr, errors.ErrorTypeExternal, errors.CodeExternalService,
			fmt.Sprintf("clickup %s failed", operation)).SetRetryable(false)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService, "decode response body")
		}
	}
	return nil
}

// IsAPIError extracts the APIError from an error chain, if present
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
