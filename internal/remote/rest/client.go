package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"libraryclient/internal/metrics"
	"libraryclient/internal/remote"
)

// DefaultTimeout bounds a single request when no timeout is configured
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error body ends up in an error message
const maxErrorBody = 512

// Client talks to the library REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

var _ remote.Backend = (*Client)(nil)

// New creates a Client for baseURL. metrics may be nil.
func New(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}, nil
}

// call describes one request
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   interface{}
}

// do executes c and decodes a JSON answer into out (when out is non-nil)
func (cl *Client) do(ctx context.Context, c call, out interface{}) error {
	resp, err := cl.send(ctx, c)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", c.op, err)
	}
	return nil
}

// doText executes c and returns the raw response body
func (cl *Client) doText(ctx context.Context, c call) (string, error) {
	resp, err := cl.send(ctx, c)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", c.op, err)
	}
	return string(b), nil
}

// send builds and performs the request; non-2xx answers become *remote.Error
func (cl *Client) send(ctx context.Context, c call) (*http.Response, error) {
	var bodyReader io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", c.op, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	target := cl.baseURL + c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, c.method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", c.op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json, text/plain")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := cl.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		cl.metrics.ObserveRequest(c.op, "error", elapsed)
		cl.logger.Warn("Backend request failed",
			zap.String("op", c.op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", c.op, err)
	}

	cl.metrics.ObserveRequest(c.op, statusClass(resp.StatusCode), elapsed)
	cl.logger.Debug("Backend request",
		zap.String("op", c.op),
		zap.String("method", c.method),
		zap.String("path", c.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", elapsed),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		rerr := &remote.Error{
			Op:         c.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
		cl.logger.Warn("Backend returned an error",
			zap.String("op", c.op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", rerr.Message),
			zap.String("request_id", requestID),
		)
		return nil, rerr
	}
	return resp, nil
}

// errorMessage pulls message/errorMessage out of a JSON error body, or
// returns the trimmed text body
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Message      string `json:"message"`
		ErrorMessage string `json:"errorMessage"`
	}
	if json.Unmarshal(b, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.ErrorMessage != "" {
			return payload.ErrorMessage
		}
	}
	return strings.TrimSpace(string(b))
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
