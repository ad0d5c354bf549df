package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func logToFile(t *testing.T, cfg Config) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.log")
	cfg.Output = path
	logger, err := New(cfg)
	require.NoError(t, err)
	return logger, path
}

func TestNew_JSONOutput(t *testing.T) {
	logger, path := logToFile(t, Config{Level: "info", Format: "json"})
	logger.Info("server started", "addr", ":8080")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	require.Equal(t, "server started", line["msg"])
	require.Equal(t, ":8080", line["addr"])
	require.Contains(t, line, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	logger, path := logToFile(t, Config{Level: "info", Format: "text"})
	logger.Debug("hidden")
	logger.Info("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), "visible")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)

	_, err = New(Config{Format: "xml"})
	require.Error(t, err)
}

func TestDebugSink(t *testing.T) {
	logger, path := logToFile(t, Config{Level: "debug", Format: "text"})
	sink := logger.DebugSink()
	sink("execution error at fail: it broke")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "query diagnostic")
	require.True(t, strings.Contains(string(data), "it broke"))
}
