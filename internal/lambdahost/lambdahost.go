// Package lambdahost serves the welcome echo function behind API Gateway's
// Lambda proxy integration.
package lambdahost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"echo-func/internal/echo"
)

type ProxyHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Handler adapts responder to a proxy integration. Errors are returned to the
// Lambda runtime, which reports the invocation as failed.
func Handler(responder *echo.Responder, logger *zap.Logger) ProxyHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		log := logger.With(zap.String("requestId", requestID(ctx, req)))

		body, err := decodeBody(req)
		if err != nil {
			log.Error("Invocation failed", zap.String("severity", "critical"), zap.Error(err))
			return events.APIGatewayProxyResponse{}, err
		}

		resp, err := responder.Respond(ctx, echo.Request{
			Headers: proxyHeaders(req),
			Body:    bytes.NewReader(body),
		})
		if err != nil {
			log.Error("Invocation failed", zap.String("severity", "critical"), zap.Error(err))
			return events.APIGatewayProxyResponse{}, err
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to encode response: %w", err)
		}

		log.Info("Invocation completed", zap.String("method", req.HTTPMethod), zap.String("path", req.Path))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       string(out),
		}, nil
	}
}

func decodeBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 body: %w", err)
	}
	return body, nil
}

// proxyHeaders prefers the multi-value form, which API Gateway fills with every
// occurrence of a header, and falls back to the single-value map.
func proxyHeaders(req events.APIGatewayProxyRequest) []echo.Header {
	var headers []echo.Header
	if len(req.MultiValueHeaders) > 0 {
		for _, name := range sortedKeys(req.MultiValueHeaders) {
			headers = append(headers, echo.Header{Name: name, Value: strings.Join(req.MultiValueHeaders[name], ",")})
		}
		return headers
	}
	for _, name := range sortedKeys(req.Headers) {
		headers = append(headers, echo.Header{Name: name, Value: req.Headers[name]})
	}
	return headers
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requestID(ctx context.Context, req events.APIGatewayProxyRequest) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return req.RequestContext.RequestID
}
