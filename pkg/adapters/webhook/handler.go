// Package webhook invokes stage services over HTTP.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ajayshanks/datagpt/pkg/ports"
)

// DefaultTimeout bounds a single stage call.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBody caps the reply size read from a stage service.
const DefaultMaxBody = 8 << 20

// Handler implements ports.StageHandler by POSTing the payload to the
// stage endpoint.
type Handler struct {
	client  *http.Client
	token   string
	headers http.Header
	maxBody int64
}

type Option func(*Handler)

// WithClient sets the HTTP client. Its Timeout wins over DefaultTimeout.
func WithClient(c *http.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

// WithToken sends "Authorization: Bearer <token>" on every call.
func WithToken(token string) Option {
	return func(h *Handler) {
		h.token = token
	}
}

// WithHeader adds a static header to every call.
func WithHeader(key, value string) Option {
	return func(h *Handler) {
		h.headers.Add(key, value)
	}
}

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) Option {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// New creates a webhook handler.
func New(opts ...Option) *Handler {
	h := &Handler{
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: make(http.Header),
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke POSTs call.Body to call.Endpoint. Non-2xx answers are returned as
// replies, not errors. A reply larger than the body cap is an error.
func (h *Handler) Invoke(ctx context.Context, call ports.StageCall) (*ports.StageReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(call.Body))
	if err != nil {
		return nil, fmt.Errorf("stage %s: new request: %w", call.Stage, err)
	}
	for k, vs := range h.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stage %s: post %q: %w", call.Stage, call.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("stage %s: read body: %w", call.Stage, err)
	}
	if int64(len(body)) > h.maxBody {
		return nil, fmt.Errorf("stage %s: reply exceeds %d bytes", call.Stage, h.maxBody)
	}
	return &ports.StageReply{StatusCode: resp.StatusCode, Body: body}, nil
}
