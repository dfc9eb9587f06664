package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		level    LogLevel
		expected slog.Level
	}{
		{name: "Debug level", level: LevelDebug, expected: slog.LevelDebug},
		{name: "Info level", level: LevelInfo, expected: slog.LevelInfo},
		{name: "Warn level", level: LevelWarn, expected: slog.LevelWarn},
		{name: "Error level", level: LevelError, expected: slog.LevelError},
		{name: "Upper case is accepted", level: LogLevel("DEBUG"), expected: slog.LevelDebug},
		{name: "Invalid level defaults to Info", level: LogLevel("invalid"), expected: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.level))
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, LevelInfo, LevelFromEnv())

	t.Setenv("LOG_LEVEL", " Warn ")
	assert.Equal(t, LevelWarn, LevelFromEnv())
}

func TestLoggingFunctions(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
		slog.SetDefault(originalLogger)
	}()

	var buf bytes.Buffer
	SetupLogger(&buf, LevelDebug)

	tests := []struct {
		name    string
		logFunc func(string, ...any)
		level   string
		message string
	}{
		{name: "Debug logging", logFunc: Debug, level: "DEBUG", message: "debug message"},
		{name: "Info logging", logFunc: Info, level: "INFO", message: "info message"},
		{name: "Warn logging", logFunc: Warn, level: "WARN", message: "warn message"},
		{name: "Error logging", logFunc: Error, level: "ERROR", message: "error message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.logFunc(tc.message, "key", "value")

			output := buf.String()
			assert.Contains(t, strings.ToUpper(output), tc.level)
			assert.Contains(t, output, tc.message)
			assert.Contains(t, output, "key=value")
		})
	}
}

func TestSetupLoggerFiltersBelowLevel(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
		slog.SetDefault(originalLogger)
	}()

	var buf bytes.Buffer
	SetupLogger(&buf, LevelWarn)

	Info("hidden")
	Debug("hidden too")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	require.NotNil(t, GetLogger())
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Email-like username", input: "qa@example.com", expected: "qa@e...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}
