package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/doordash-export/internal/infrastructure/config"
)

func TestMavenHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, nil))

	logger.Info("fetched page", slog.Int("offset", 20), slog.Bool("cached", true))

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "fetched page")
	assert.Contains(t, line, "offset=20")
	assert.Contains(t, line, "cached=true")
	// A buffer is not a terminal, so no ANSI escapes.
	assert.NotContains(t, line, "\033[")
}

func TestMavenHandlerSystemPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, nil)).With(slog.String("system", "cache"))

	logger.Warn("discarding corrupt cache entry")

	line := buf.String()
	assert.Contains(t, line, "[WARN] [cache]")
	// The system attr is rendered as the bracketed prefix, not as key=value.
	assert.NotContains(t, line, "system=")
}

func TestMavenHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := NewMavenHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestMavenHandlerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	h := NewMavenHandler(&buf, nil)

	rec := slog.NewRecord(time.Date(2023, 5, 1, 9, 30, 15, 0, time.UTC), slog.LevelInfo, "hello", 0)
	require.NoError(t, h.Handle(context.Background(), rec))
	assert.Contains(t, buf.String(), "[09:30:15]")
}

func TestNewLoggerRespectsConfiguredLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for level, want := range cases {
		logger := NewLogger(config.LoggingConfig{Level: level})
		assert.True(t, logger.Enabled(context.Background(), want), "level %q", level)
		if want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), want-1), "level %q", level)
		}
	}
}
