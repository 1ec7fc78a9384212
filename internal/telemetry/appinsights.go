// Package telemetry exports logs and requests to Azure Application Insights.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Microsoft/ApplicationInsights-Go/appinsights"

	"echo-func/pkg/handler"
)

var ErrMissingInstrumentationKey = errors.New("connection string has no InstrumentationKey")

// ConnectionString is the parsed form of APPLICATIONINSIGHTS_CONNECTION_STRING.
type ConnectionString struct {
	InstrumentationKey string
	IngestionEndpoint  string
}

// ParseConnectionString reads a "Key=Value;Key=Value" connection string.
// Keys are matched case-insensitively; unknown keys are ignored.
func ParseConnectionString(s string) (ConnectionString, error) {
	var cs ConnectionString
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionString{}, fmt.Errorf("malformed connection string segment %q", part)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "instrumentationkey":
			cs.InstrumentationKey = strings.TrimSpace(value)
		case "ingestionendpoint":
			cs.IngestionEndpoint = strings.TrimSpace(value)
		}
	}
	if cs.InstrumentationKey == "" {
		return ConnectionString{}, ErrMissingInstrumentationKey
	}
	return cs, nil
}

// TrackURL is where telemetry for cs is sent.
func (cs ConnectionString) TrackURL() string {
	if cs.IngestionEndpoint == "" {
		return ""
	}
	return strings.TrimRight(cs.IngestionEndpoint, "/") + "/v2/track"
}

// tracker is the part of appinsights.TelemetryClient this package sends with.
type tracker interface {
	Track(telemetry appinsights.Telemetry)
}

type Client struct {
	client appinsights.TelemetryClient
	sink   tracker
}

// New builds a client for connectionString.
func New(connectionString string) (*Client, error) {
	cs, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse application insights connection string: %w", err)
	}

	cfg := appinsights.NewTelemetryConfiguration(cs.InstrumentationKey)
	if url := cs.TrackURL(); url != "" {
		cfg.EndpointUrl = url
	}
	client := appinsights.NewTelemetryClientFromConfig(cfg)
	return &Client{client: client, sink: client}, nil
}

// TrackRequest sends inv as request telemetry.
func (c *Client) TrackRequest(inv handler.Invocation) {
	req := appinsights.NewRequestTelemetry(inv.Method, inv.Path, inv.Duration, strconv.Itoa(inv.StatusCode))
	req.Name = inv.Method + " " + inv.Function
	req.Id = inv.RequestID
	req.Timestamp = inv.Start
	req.Success = inv.StatusCode < 400
	req.Properties["function"] = inv.Function
	c.sink.Track(req)
}

// Close flushes buffered telemetry, waiting at most timeout.
func (c *Client) Close(timeout time.Duration) error {
	if c.client == nil {
		return nil
	}
	select {
	case <-c.client.Channel().Close(timeout):
		return nil
	case <-time.After(timeout + time.Second):
		return errors.New("timed out closing telemetry channel")
	}
}
