package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, parseLevel(tc.raw), "raw=%q", tc.raw)
	}
}

func TestSetupRenamesCoreFields(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "vaultd", "staging", slog.LevelInfo)

	logger.Info("vault created", "vault", "abc123")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "vault created", line["message"])
	require.Equal(t, "vaultd", line["service"])
	require.Equal(t, "staging", line["env"])
	require.Equal(t, "abc123", line["vault"])
	require.Contains(t, line, "timestamp")
	require.NotContains(t, line, "msg")
	require.NotContains(t, line, "level")
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "vaultd", "", slog.LevelWarn)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "WARN", line["severity"])
	require.NotContains(t, line, "env")
}
