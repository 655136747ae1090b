// Package transport is the shared HTTP plumbing behind the image source and
// scan API clients: default headers, outbound rate limiting, request logging
// and classification of failures into typed API errors.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/ratelimit"
)

// maxBodyPreview caps how much of an unparseable body ends up in the log
const maxBodyPreview = 200

// Client performs HTTP requests with a fixed header set
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	timeout    time.Duration
}

// New creates a client whose requests default to timeout
func New(timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		httpClient: &http.Client{},
		headers:    make(map[string]string),
		limiter:    limiter,
		logger:     log,
		timeout:    timeout,
	}
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// SetHTTPClient replaces the underlying http.Client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Do waits for the rate limiter, applies the default headers and sends req.
// Transport failures come back as *errors.Error of type network, except
// cancellation of the caller's context which is returned as is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &errs.Error{Type: errs.ErrorTypeRateLimit, Message: err.Error()}
	}

	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Send builds a request bound to a timeout derived from ctx, sends it and
// returns the full body of a 2xx response
func (c *Client) Send(ctx context.Context, method, url string, body io.Reader, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return data, nil
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	body, err := c.Send(ctx, http.MethodGet, url, nil, map[string]string{"Accept": "application/json"}, c.timeout)
	if err != nil {
		return err
	}
	return c.DecodeJSON(url, body, target)
}

// DecodeJSON unmarshals body into target, logging a preview on failure
func (c *Client) DecodeJSON(url string, body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
		}
	}
	return nil
}

// checkResponseStatus maps non-2xx responses onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errType := errs.TypeForStatus(resp.StatusCode)
	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	if errType == errs.ErrorTypeServerError {
		c.logger.ErrorWithFields("server error", fields)
	} else {
		c.logger.WarnWithFields("unexpected API status", fields)
	}

	return &errs.Error{
		Type:    errType,
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}
