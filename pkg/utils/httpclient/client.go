// Package httpclient provides a small JSON-over-HTTP client used by the model providers.
//
// Every failure that is not caused by the caller's context is reported as
// errors.ErrModelUnavailable so callers can map it straight to a 503.
package httpclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// maxErrorBody 限制错误响应体读取长度。
const maxErrorBody = 4 << 10

// Client is a wrapper around http.Client with additional functionality.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

// NewClient creates a new HTTP client wrapper.
// A zero timeout leaves the deadline to the request context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// PostJSON marshals in, POSTs it to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.DoJSON(req, out)
}

// GetJSON GETs url and decodes the response into out. out may be nil.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.DoJSON(req, out)
}

// DoJSON executes a JSON request, decodes the response, and ensures the body is closed.
// Requests are never retried.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 调用方的取消或超时原样上抛，由上层映射为超时
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
		}
		return errors.ErrModelUnavailable.WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.ErrModelUnavailable.WithCause(
			fmt.Errorf("%s %s: status code %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(bodyBytes)),
		)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
			}
			return errors.ErrModelUnavailable.WithCause(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// IsContextError reports whether err stems from a cancelled or expired context.
func IsContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
