package telemetry

import (
	"fmt"

	"github.com/Microsoft/ApplicationInsights-Go/appinsights"
	"github.com/Microsoft/ApplicationInsights-Go/appinsights/contracts"
	"go.uber.org/zap/zapcore"
)

// Core returns a zapcore.Core that sends entries at or above level as trace
// telemetry. Entries carrying severity=critical are sent as Critical.
func (c *Client) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &traceCore{LevelEnabler: level, sink: c.sink}
}

type traceCore struct {
	zapcore.LevelEnabler
	sink   tracker
	fields []zapcore.Field
}

func (t *traceCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &traceCore{LevelEnabler: t.LevelEnabler, sink: t.sink}
	clone.fields = append(append(clone.fields, t.fields...), fields...)
	return clone
}

func (t *traceCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if t.Enabled(entry.Level) {
		return ce.AddCore(entry, t)
	}
	return ce
}

func (t *traceCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range t.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	severity := severityFor(entry.Level)
	if s, ok := enc.Fields["severity"].(string); ok && s == "critical" {
		severity = appinsights.Critical
	}

	trace := appinsights.NewTraceTelemetry(entry.Message, severity)
	trace.Timestamp = entry.Time
	if entry.LoggerName != "" {
		trace.Properties["logger"] = entry.LoggerName
	}
	for k, v := range enc.Fields {
		trace.Properties[k] = fmt.Sprint(v)
	}
	t.sink.Track(trace)
	return nil
}

func (t *traceCore) Sync() error {
	return nil
}

func severityFor(level zapcore.Level) contracts.SeverityLevel {
	switch {
	case level <= zapcore.DebugLevel:
		return appinsights.Verbose
	case level == zapcore.InfoLevel:
		return appinsights.Information
	case level == zapcore.WarnLevel:
		return appinsights.Warning
	case level == zapcore.ErrorLevel:
		return appinsights.Error
	default:
		return appinsights.Critical
	}
}
