package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEmitsStructuredJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logger, closer := New(Options{Service: "basketsim", Env: "test", Level: "debug", Output: &buf})
	defer closer.Close()

	logger.Debug("pool operation rejected", "op", "mint")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "pool operation rejected", line["message"])
	require.Equal(t, "basketsim", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "mint", line["op"])
	require.Contains(t, line, "timestamp")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logger, _ := New(Options{Service: "basketsim", Level: "warn", Output: &buf})
	logger.Info("dropped")
	require.Zero(t, buf.Len())
	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestNewWritesRotatingFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	path := filepath.Join(t.TempDir(), "basketsim.log")
	var buf bytes.Buffer
	logger, closer := New(Options{Service: "basketsim", Output: &buf, File: path, MaxSizeMB: 1})
	logger.Info("ledger ready")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "ledger ready")
	require.Equal(t, buf.String(), string(contents))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
