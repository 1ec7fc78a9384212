// Package function registers the welcome echo functions with a host.
package function

import (
	"context"
	"net/http"

	"echo-func/internal/echo"
	"echo-func/pkg/handler"
)

const (
	// PostTriggerName accepts POST only and is always anonymous.
	PostTriggerName = "HttpPostTrigger"
	// TriggerName accepts GET and POST at the configured auth level.
	TriggerName = "HttpTrigger"
)

// Echo adapts responder to the host's handler signature.
func Echo(responder *echo.Responder) handler.Handler {
	return func(ctx context.Context, event handler.Event) (any, error) {
		resp, err := responder.Respond(ctx, echo.Request{
			Headers: echo.HeadersFromHTTP(event.Headers),
			Body:    event.Body,
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

// Functions returns both echo function variants.
func Functions(responder *echo.Responder, authLevel handler.AuthLevel) []handler.Function {
	h := Echo(responder)
	return []handler.Function{
		{
			Name:      PostTriggerName,
			Methods:   []string{http.MethodPost},
			AuthLevel: handler.AuthAnonymous,
			Handler:   h,
		},
		{
			Name:      TriggerName,
			Methods:   []string{http.MethodGet, http.MethodPost},
			AuthLevel: authLevel,
			Handler:   h,
		},
	}
}

// Register adds every echo function to s.
func Register(s *handler.Server, responder *echo.Responder, authLevel handler.AuthLevel) error {
	for _, fn := range Functions(responder, authLevel) {
		if err := s.Register(fn); err != nil {
			return err
		}
	}
	return nil
}
