package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSiteLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("sitemap").
		With("locale", "en-us").
		Warn(context.Background(), errors.New("boom"), "path miss", "path", "/blog")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "path miss", record["msg"])
	assert.Equal(t, "sitemap", record["component"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, "en-us", record["locale"])
	assert.Equal(t, "/blog", record["path"])
}

func TestSiteLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden too")
	assert.Empty(t, buf.String())

	logger.Error(context.Background(), nil, "shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestSiteLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	_ = parent.With("request_id", "abc")

	parent.Info(context.Background(), "plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.With("a", 1).WithComponent("x").Error(context.Background(), errors.New("e"), "m")
	})
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "password field",
			input:    "user password: secret123",
			expected: "[REDACTED]",
		},
		{
			name:     "preview key",
			input:    "agilitypreviewkey=abc",
			expected: "[REDACTED]",
		},
		{
			name:     "normal text",
			input:    "normal log message",
			expected: "normal log message",
		},
		{
			name:     "long text truncation",
			input:    string(make([]byte, 1500)),
			expected: string(make([]byte, 1000)) + "...[TRUNCATED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeForLog(tt.input))
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "[REDACTED]", Redact("short"))
	assert.Equal(t, "eyJhbG…", Redact("eyJhbGciOiJIUzUxMiJ9"))
}
