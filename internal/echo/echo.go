// Package echo builds the welcome response that mirrors a request's headers
// and JSON body back to the caller.
package echo

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Request is the part of an inbound request the responder reads. Body may be
// nil.
type Request struct {
	Headers []Header
	Body    io.Reader
}

// Observer is notified of the content outcome of every response.
type Observer interface {
	ObserveContent(status ContentStatus)
}

type Option func(*Responder)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(r *Responder) {
		r.observer = observer
	}
}

// Responder turns requests into welcome responses. It holds no per-request
// state and is safe for concurrent use.
type Responder struct {
	logger   *zap.Logger
	observer Observer
}

func NewResponder(opts ...Option) *Responder {
	r := &Responder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond writes the welcome message, then every header, then the parsed body
// under "content". A body that is not valid JSON is dropped silently. The only
// errors returned come from reading the body, including ctx cancellation.
func (r *Responder) Respond(ctx context.Context, req Request) (*Response, error) {
	resp := NewResponse()

	for _, h := range foldHeaders(req.Headers) {
		resp.Set(h.Name, h.Value)
	}

	body, err := readBody(ctx, req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	content := ParseContent(body)
	resp.content = content.Status
	switch content.Status {
	case ContentParsed:
		resp.Set(ContentKey, content.Value)
	case ContentInvalid:
		r.logger.Debug("Request body is not valid JSON, omitting content", zap.Int("bytes", len(body)))
	}

	if r.observer != nil {
		r.observer.ObserveContent(content.Status)
	}
	return resp, nil
}

func readBody(ctx context.Context, body io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	return io.ReadAll(&ctxReader{ctx: ctx, r: body})
}

// ctxReader stops a read loop once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
