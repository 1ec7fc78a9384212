package logger

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Helper to capture stdout
func captureOutput(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestGet_Singleton(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger1 := Get()
	require.NotNil(t, logger1)

	logger2 := Get()
	assert.Same(t, logger1, logger2, "Get() should return the same logger instance")
}

func TestGet_LogLevelFromEnv(t *testing.T) {
	testCases := []struct {
		name        string
		envLevel    string
		expectLevel zapcore.Level
	}{
		{"debug level", "debug", zap.DebugLevel},
		{"info level", "info", zap.InfoLevel},
		{"warn level", "warn", zap.WarnLevel},
		{"error level", "error", zap.ErrorLevel},
		{"invalid level", "invalid_level", zap.InfoLevel},
		{"empty level", "", zap.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ResetForTest()
			t.Cleanup(ResetForTest)
			t.Setenv("LOG_LEVEL", tc.envLevel)
			t.Setenv("LOG_FILE", "")

			var l *zap.Logger
			captureOutput(t, func() { l = Get() })
			assert.Equal(t, tc.expectLevel, l.Level(), "Logger level after Get() with LOG_LEVEL='%s'", tc.envLevel)
		})
	}
}

func TestGet_InvalidLevelWarns(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_FILE", "")

	out := captureOutput(t, func() {
		Get().Sync()
	})

	assert.Contains(t, out, "Invalid LOG_LEVEL")
	assert.Contains(t, out, `"log_level":"loud"`)
}

func TestInit_Settings(t *testing.T) {
	testCases := []struct {
		name        string
		level       string
		expectLevel zapcore.Level
		expectWarn  bool
	}{
		{"upper case level", "DEBUG", zap.DebugLevel, false},
		{"invalid level", "bogus", zap.InfoLevel, true},
		{"empty level", "", zap.InfoLevel, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ResetForTest()
			t.Cleanup(ResetForTest)
			t.Setenv("LOG_LEVEL", "error")

			var l *zap.Logger
			out := captureOutput(t, func() {
				l = Init(Settings{Level: tc.level})
				l.Sync()
			})

			assert.Equal(t, tc.expectLevel, l.Level(), "environment is ignored when settings are given")
			assert.Same(t, l, Get())
			if tc.expectWarn {
				assert.Contains(t, out, "Invalid LOG_LEVEL")
				assert.Contains(t, out, `"log_level":"bogus"`)
			} else {
				assert.NotContains(t, out, "Invalid LOG_LEVEL")
			}
		})
	}
}

func TestInit_AfterGetKeepsLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FILE", "")

	var first, second *zap.Logger
	captureOutput(t, func() {
		first = Get()
		second = Init(Settings{Level: "debug"})
	})

	assert.Same(t, first, second)
	assert.Equal(t, zap.WarnLevel, second.Level())
}

func TestLogger_WithCtx_FromCtx(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	defaultLogger := Get()
	require.NotNil(t, defaultLogger)

	t.Run("FromCtx without logger returns default", func(t *testing.T) {
		l := FromCtx(context.Background())
		assert.Same(t, defaultLogger, l, "Should return default logger")
	})

	t.Run("WithCtx and FromCtx roundtrip", func(t *testing.T) {
		customLogger := zap.NewNop()
		ctx := WithCtx(context.Background(), customLogger)

		l := FromCtx(ctx)
		assert.Same(t, customLogger, l, "Should return logger from context")
	})

	t.Run("WithCtx with same logger returns original context", func(t *testing.T) {
		customLogger := zap.NewNop()
		ctx1 := WithCtx(context.Background(), customLogger)
		ctx2 := WithCtx(ctx1, customLogger)

		assert.Same(t, ctx1, ctx2, "Context should not change if same logger is stored")
	})
}

func TestGet_OutputFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "app.log")
	t.Setenv("LOG_FILE", logFile)
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("APP_ENV", "development")

	consoleOutput := captureOutput(t, func() {
		l := Get()
		l.Info("Test console log message", zap.String("type", "console_test"))
		l.Sync()
	})

	assert.Contains(t, consoleOutput, "Test console log message")
	assert.Contains(t, consoleOutput, "console_test")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	file := string(content)
	assert.True(t, strings.Contains(file, `"msg":"Test console log message"`), file)
	assert.Contains(t, file, `"type":"console_test"`)
	assert.Contains(t, file, `"git_revision"`)
	assert.Contains(t, file, `"go_version"`)
}
