package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := log
	t.Cleanup(func() { log = prev })

	var buf bytes.Buffer
	log = New(NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestInit(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	t.Setenv("LOG_LEVEL", "warn")
	Init()
	assert.NotNil(t, log)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		emit      func()
		wantLevel string
		wantMsg   string
	}{
		{"info", func() { Info("booking created", "booking_id", "b-1") }, "INFO", "booking created"},
		{"infof", func() { Infof("Server starting on port %s", "8080") }, "INFO", "Server starting on port 8080"},
		{"warn", func() { Warn("stale waitlist entry") }, "WARN", "stale waitlist entry"},
		{"warnf", func() { Warnf("webhook %s ignored", "merchant_order") }, "WARN", "webhook merchant_order ignored"},
		{"error", func() { Error("reconcile failed") }, "ERROR", "reconcile failed"},
		{"errorf", func() { Errorf("Server error: %v", "boom") }, "ERROR", "Server error: boom"},
		{"debug", func() { Debug("audit event queued") }, "DEBUG", "audit event queued"},
		{"debugf", func() { Debugf("queue length %d", 3) }, "DEBUG", "queue length 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, slog.LevelDebug)
			tt.emit()

			line := decode(t, buf)
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, tt.wantMsg, line["msg"])
		})
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := capture(t, slog.LevelInfo)
	Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestWithError(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	WithError(assert.AnError).Info("payment fetch failed")

	line := decode(t, buf)
	assert.Equal(t, "payment fetch failed", line["msg"])
	assert.Equal(t, assert.AnError.Error(), line["error"])
}

func TestWithFields(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	WithFields(map[string]interface{}{"order_id": "o-1", "attempt": 2}).Info("reconciled")

	line := decode(t, buf)
	assert.Equal(t, "o-1", line["order_id"])
	assert.EqualValues(t, 2, line["attempt"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
