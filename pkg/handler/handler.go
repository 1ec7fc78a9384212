// Package handler hosts HTTP-triggered functions the way a serverless runtime
// does: it binds each function to a route and its methods, enforces the
// function's authorization level and turns the function's result into a JSON
// response.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"echo-func/pkg/logger"
)

// StatusClientClosedRequest is recorded when the caller goes away before the
// function finishes. Nothing is written back in that case.
const StatusClientClosedRequest = 499

var (
	ErrInvalidFunction   = errors.New("invalid function")
	ErrDuplicateFunction = errors.New("function already registered")
)

// Event is one HTTP invocation as seen by a function.
type Event struct {
	Method    string
	Path      string
	Headers   http.Header
	Query     url.Values
	Body      io.Reader
	RequestID string
}

// Handler processes an event. A nil error means the result is written back as
// JSON with status 200; any error is treated as fatal for the invocation.
type Handler func(ctx context.Context, event Event) (any, error)

type AuthLevel string

const (
	AuthAnonymous AuthLevel = "anonymous"
	// AuthFunction requires one of the host's function keys in the "code" query
	// parameter or the x-functions-key header.
	AuthFunction AuthLevel = "function"
)

// Function binds a handler to the route <prefix>/<Name>.
type Function struct {
	Name      string    `validate:"required,alphanum"`
	Methods   []string  `validate:"required,dive,oneof=GET POST"`
	AuthLevel AuthLevel `validate:"oneof=anonymous function"`
	Handler   Handler   `validate:"required"`
}

// Invocation describes a finished request to a function.
type Invocation struct {
	Function   string
	Method     string
	Path       string
	RequestID  string
	StatusCode int
	Duration   time.Duration
	Start      time.Time
}

// RequestTracker is told about every finished invocation.
type RequestTracker interface {
	TrackRequest(inv Invocation)
}

type Options struct {
	Addr              string
	RoutePrefix       string
	FunctionKeys      []string
	ReadHeaderTimeout time.Duration
}

type ServerOption func(*Server)

func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

func WithTracker(t RequestTracker) ServerOption {
	return func(s *Server) {
		s.trackers = append(s.trackers, t)
	}
}

// WithMetricsHandler exposes h on GET /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.router.Handle("/metrics", h).Methods(http.MethodGet)
	}
}

type Server struct {
	opts      Options
	router    *mux.Router
	server    *http.Server
	logger    *zap.Logger
	trackers  []RequestTracker
	functions map[string]Function
	validate  *validator.Validate
}

func NewServer(opts Options, serverOpts ...ServerOption) *Server {
	s := &Server{
		opts:      opts,
		router:    mux.NewRouter(),
		logger:    zap.NewNop(),
		functions: make(map[string]Function),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}

	for _, opt := range serverOpts {
		opt(s)
	}
	return s
}

// Register validates fn and routes it.
func (s *Server) Register(fn Function) error {
	if fn.AuthLevel == "" {
		fn.AuthLevel = AuthAnonymous
	}
	if err := s.validate.Struct(fn); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidFunction, fn.Name, err)
	}
	if fn.AuthLevel == AuthFunction && len(s.opts.FunctionKeys) == 0 {
		return fmt.Errorf("%w %q: function auth level requires at least one function key", ErrInvalidFunction, fn.Name)
	}
	if _, exists := s.functions[fn.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, fn.Name)
	}

	s.functions[fn.Name] = fn
	s.router.HandleFunc(s.Route(fn.Name), s.invocationHandler(fn)).Methods(fn.Methods...)

	s.logger.Info("Function registered",
		zap.String("name", fn.Name),
		zap.String("route", s.Route(fn.Name)),
		zap.Strings("methods", fn.Methods),
		zap.String("authLevel", string(fn.AuthLevel)))
	return nil
}

// Route is the path a function named name is served on.
func (s *Server) Route(name string) string {
	return s.opts.RoutePrefix + "/" + name
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until Shutdown is called, returning http.ErrServerClosed then.
func (s *Server) Start() error {
	s.logger.Info("Starting function host", zap.String("address", s.opts.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down function host")
	return s.server.Shutdown(ctx)
}

// invocationHandler returns an http.HandlerFunc that runs fn for one request
func (s *Server) invocationHandler(fn Function) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFrom(r)
		log := s.logger.With(zap.String("function", fn.Name), zap.String("requestId", requestID))
		log.Debug("Invocation received", zap.String("method", r.Method), zap.String("path", r.URL.Path))

		status := s.serveInvocation(w, r, fn, requestID, log)

		inv := Invocation{
			Function:   fn.Name,
			Method:     r.Method,
			Path:       r.URL.Path,
			RequestID:  requestID,
			StatusCode: status,
			Duration:   time.Since(start),
			Start:      start,
		}
		for _, t := range s.trackers {
			t.TrackRequest(inv)
		}
		log.Info("Invocation completed", zap.Int("status", status), zap.Duration("duration", inv.Duration))
	}
}

func (s *Server) serveInvocation(w http.ResponseWriter, r *http.Request, fn Function, requestID string, log *zap.Logger) int {
	if fn.AuthLevel == AuthFunction && !authorized(r, s.opts.FunctionKeys) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return http.StatusUnauthorized
	}

	event := Event{
		Method:    r.Method,
		Path:      r.URL.Path,
		Headers:   requestHeaders(r),
		Query:     r.URL.Query(),
		Body:      r.Body,
		RequestID: requestID,
	}
	ctx := logger.WithCtx(r.Context(), log)

	body, err := invoke(ctx, fn.Handler, event)
	if err != nil {
		if r.Context().Err() != nil {
			log.Info("Invocation cancelled by caller", zap.Error(err))
			return StatusClientClosedRequest
		}
		log.Error("Invocation failed", zap.String("severity", "critical"), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warn("Failed to write response", zap.Error(err))
	}
	return http.StatusOK
}

// invoke runs h and encodes its result. Panics are returned as errors so the
// host answers them like any other fatal failure.
func invoke(ctx context.Context, h Handler, event Event) (body []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("function panicked: %v", rec)
		}
	}()

	result, err := h(ctx, event)
	if err != nil {
		return nil, err
	}
	body, err = json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return body, nil
}

// requestHeaders returns the headers as sent by the caller. net/http moves
// Host and Transfer-Encoding out of r.Header, so they are put back.
func requestHeaders(r *http.Request) http.Header {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if r.Host != "" {
		h.Set("Host", r.Host)
	}
	if len(r.TransferEncoding) > 0 {
		h.Set("Transfer-Encoding", strings.Join(r.TransferEncoding, ","))
	}
	return h
}

// requestIDFrom prefers the caller's id, then the one the Azure host forwards.
func requestIDFrom(r *http.Request) string {
	for _, name := range []string{"X-Request-Id", "X-Ms-Request-Id"} {
		if id := r.Header.Get(name); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
