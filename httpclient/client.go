// Package httpclient is the single transport for the admin API: JSON
// bodies, bearer tokens, request IDs and one error shape for every failure.
//
// It does not retry, enforce timeouts or cache responses. Bound calls with
// the context or the http.Client passed to WithHTTPClient.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/fanadmin/observe"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://fanatix.usetend.com/api/v1"

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Client sends JSON requests relative to a base URL.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: non-2xx responses return *APIError; send or read failures
//     return *TransportError. Nothing is swallowed.
type Client struct {
	baseURL   string
	http      *http.Client
	tel       *observe.Middleware
	log       observe.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTelemetry records a span and request metrics for every call.
func WithTelemetry(m *observe.Middleware) Option {
	return func(c *Client) {
		if m != nil {
			c.tel = m
		}
	}
}

// WithLogger overrides the telemetry logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		tel:       observe.Nop(),
		userAgent: "fanadmin",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = c.tel.Logger()
	}
	c.log = c.log.With(observe.Field{Key: "component", Value: "httpclient"})
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get sends a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path, token string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, token, out)
}

// Post sends body as JSON with POST.
func (c *Client) Post(ctx context.Context, path string, body any, token string, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, token, out)
}

// Put sends body as JSON with PUT.
func (c *Client) Put(ctx context.Context, path string, body any, token string, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, token, out)
}

// Patch sends body as JSON with PATCH. A nil body sends no payload.
func (c *Client) Patch(ctx context.Context, path string, body any, token string, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, token, out)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path, token string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, token, out)
}

// Do sends one request. path is appended to the base URL and may carry a
// query string. A non-empty token is sent as a bearer credential. When out
// is non-nil, a non-empty 2xx body is decoded into it; a *json.RawMessage
// receives the body verbatim.
func (c *Client) Do(ctx context.Context, method, path string, body any, token string, out any) (err error) {
	requestID := uuid.New().String()
	route := routeLabel(path)

	ctx, span := c.tel.Tracer().StartSpan(ctx, observe.SpanMeta{
		Component: "http",
		Name:      method + " " + route,
		Scope:     route,
		Client:    true,
		Attrs: []attribute.KeyValue{
			attribute.String("http.request.method", method),
			attribute.String("fanadmin.request_id", requestID),
		},
	})
	start := time.Now()
	status := 0
	defer func() {
		duration := time.Since(start)
		c.tel.Tracer().EndSpan(span, err)
		c.tel.Metrics().RecordRequest(ctx, method, route, status, duration, err)

		fields := []observe.Field{
			{Key: "method", Value: method},
			{Key: "route", Value: route},
			{Key: "status", Value: status},
			{Key: "request_id", Value: requestID},
			{Key: "duration_ms", Value: duration.Milliseconds()},
		}
		if err != nil {
			c.log.Warn(ctx, "request failed", append(fields, observe.Field{Key: "error", Value: err})...)
			return
		}
		c.log.Debug(ctx, "request completed", fields...)
	}()

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return &TransportError{Method: method, Path: path, Err: merr}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	if status < 200 || status > 299 {
		return &APIError{StatusCode: status, Message: errorMessage(data), RequestID: requestID}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	return nil
}

func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return DefaultErrorMessage
	}
	msg := gjson.GetBytes(body, "message")
	if msg.Type != gjson.String || msg.Str == "" {
		return DefaultErrorMessage
	}
	return msg.Str
}

// routeLabel strips the query string and replaces identifier segments so
// metric labels stay low-cardinality.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s != "" && strings.ContainsAny(s, "0123456789") {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
