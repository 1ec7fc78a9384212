// Package logger provides the process-wide zap logger.
package logger

import (
	"context"
	"os"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	once   sync.Once
	logger *zap.Logger
)

// Settings selects how the shared logger is built.
type Settings struct {
	// Level is parsed with zapcore.ParseLevel. Empty or invalid means info.
	Level       string
	Development bool
	// File, when set, receives a JSON copy of every entry.
	File string
}

// SettingsFromEnv reads LOG_LEVEL, APP_ENV and LOG_FILE.
func SettingsFromEnv() Settings {
	return Settings{
		Level:       os.Getenv("LOG_LEVEL"),
		Development: os.Getenv("APP_ENV") == "development",
		File:        os.Getenv("LOG_FILE"),
	}
}

// Init builds the shared logger from s. It has no effect once the shared
// logger exists.
func Init(s Settings) *zap.Logger {
	once.Do(func() {
		logger = build(s)
	})
	return logger
}

// Get returns the shared logger, building it from the environment if Init
// was not called first.
func Get() *zap.Logger {
	once.Do(func() {
		logger = build(SettingsFromEnv())
	})
	return logger
}

// ResetForTest discards the shared logger so the next Get rebuilds it.
func ResetForTest() {
	once = sync.Once{}
	logger = nil
}

func build(s Settings) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	invalidLevel := false
	if s.Level != "" {
		parsed, err := zapcore.ParseLevel(s.Level)
		if err != nil {
			invalidLevel = true
		} else {
			level.SetLevel(parsed)
		}
	}

	var consoleEncoder zapcore.Encoder
	if s.Development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}

	var fileErr error
	if s.File != "" {
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileErr = err
		} else {
			fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
			cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(f), level))
		}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(buildFields()...)

	if invalidLevel {
		l.Warn("Invalid LOG_LEVEL, falling back to info", zap.String("log_level", s.Level))
	}
	if fileErr != nil {
		l.Warn("Failed to open log file, logging to stdout only", zap.Error(fileErr))
	}
	return l
}

func buildFields() []zap.Field {
	goVersion := "unknown"
	gitRevision := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				gitRevision = s.Value
			}
		}
	}
	return []zap.Field{
		zap.String("git_revision", gitRevision),
		zap.String("go_version", goVersion),
	}
}

// WithCtx stores l in ctx. ctx is returned unchanged if it already holds l.
func WithCtx(ctx context.Context, l *zap.Logger) context.Context {
	if current, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && current == l {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx returns the logger stored in ctx, or the shared logger.
func FromCtx(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return Get()
}
