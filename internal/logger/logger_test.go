package logger_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchdeck/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logger.ParseLevel("verbose")
	require.ErrorIs(t, err, logger.ErrUnknownLevel)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "slide", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "slide=3")
	assert.NotContains(t, out, "\x1b[", "no color codes for non-terminal writers")
}

func TestOpenFile(t *testing.T) {
	w, err := logger.OpenFile("")
	require.NoError(t, err)
	_, err = w.Write([]byte("dropped"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "deck.log")
	w, err = logger.OpenFile(path)
	require.NoError(t, err)
	logger.New(w, slog.LevelInfo).Info("hello")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
