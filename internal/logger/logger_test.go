package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/table-assist/internal/config"
)

func TestMultiHandler_FansOut(t *testing.T) {
	var text, js bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	log := slog.New(h).With("component", "test")

	log.Info("only json")
	log.Warn("both")

	assert.NotContains(t, text.String(), "only json")
	assert.Contains(t, text.String(), "both")
	assert.Contains(t, text.String(), "component=test")

	lines := strings.Split(strings.TrimSpace(js.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "only json", rec["msg"])
	assert.Equal(t, "test", rec["component"])
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := newMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	assert.True(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, h.Enabled(t.Context(), slog.LevelDebug))
}

func TestSetup_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table-assist.log")
	cfg := &config.Config{
		Environment:   "production",
		LogLevelRaw:   "info",
		LogFile:       path,
		LogMaxSizeMB:  1,
		LogMaxBackups: 1,
		LogMaxAgeDays: 1,
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	log := Setup(cfg)
	WithUser(log, "alice").Info("dispatched", "intent", "inventory_query")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":"alice"`)
	assert.Contains(t, string(data), `"intent":"inventory_query"`)
}
