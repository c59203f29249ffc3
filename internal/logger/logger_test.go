package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(&Config{Level: level, Format: "json", Output: buf}), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLogger_JSONOutput(t *testing.T) {
	log, buf := newBuffered("info")

	log.Info("catalog loaded")

	entry := lastEntry(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "catalog loaded", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_ConsoleOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "info", Format: "console", Output: buf})

	log.InfoWith("catalog loaded", Fields{"tables": 3})

	assert.Contains(t, buf.String(), "catalog loaded")
	assert.Contains(t, buf.String(), "tables")
}

func TestLogger_ChildFields(t *testing.T) {
	log, buf := newBuffered("info")

	log.With().
		Str("table", "public.users").
		Uint32("table_oid", 16384).
		Int("page", 2).
		Logger().
		Info("page read")

	entry := lastEntry(t, buf)
	assert.Equal(t, "public.users", entry["table"])
	assert.Equal(t, float64(16384), entry["table_oid"])
	assert.Equal(t, float64(2), entry["page"])
}

func TestLogger_WithFields(t *testing.T) {
	log, buf := newBuffered("info")
	cause := errors.New("connection refused")

	log.WarnWith("submission rejected", cause, Fields{"table": "public.users"})
	entry := lastEntry(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "public.users", entry["table"])

	log.ErrorWith("catalog load failed", cause, Fields{"kind": "connection_failed", "tables": 3})
	entry = lastEntry(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "catalog load failed", entry["message"])
	assert.Equal(t, "connection_failed", entry["kind"])
	assert.Equal(t, float64(3), entry["tables"])
}

func TestLogger_FieldOrder(t *testing.T) {
	log, buf := newBuffered("info")

	log.InfoWith("catalog loaded", Fields{"tables": 3, "ambiguous": 0, "schemas": 1})

	out := buf.String()
	a, s, tb := strings.Index(out, `"ambiguous"`), strings.Index(out, `"schemas"`), strings.Index(out, `"tables"`)
	assert.True(t, a < s && s < tb, out)
}

func TestLogger_Context(t *testing.T) {
	log, buf := newBuffered("info")

	ctx := log.With().Str("request_id", "req-1").Logger().WithContext(context.Background())
	FromContext(ctx).Info("from context")

	entry := lastEntry(t, buf)
	assert.Equal(t, "from context", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	log, buf := newBuffered("info")
	prev := global
	SetGlobal(log)
	t.Cleanup(func() { SetGlobal(prev) })

	FromContext(context.Background()).Info("no logger in context")

	assert.Equal(t, "no logger in context", lastEntry(t, buf)["message"])
}

func TestLogger_Request(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "info"},
		{404, "info"},
		{503, "warn"},
	}

	for _, tt := range tests {
		log, buf := newBuffered("info")
		log.Request("POST", "/tables/16384/records/new", tt.status, 1500*time.Microsecond, "req-1")

		entry := lastEntry(t, buf)
		assert.Equal(t, tt.level, entry["level"], "status %d", tt.status)
		assert.Equal(t, "POST", entry["method"])
		assert.Equal(t, float64(tt.status), entry["status"])
		assert.Equal(t, "req-1", entry["request_id"])
	}
}

func TestLogger_Nop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().ErrorWith("ignored", errors.New("x"), nil)
	})
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logFunc func(*Logger)
		logged  bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.Debugf("query: %s", "SELECT 1") }, true},
		{"info level skips debug", "info", func(l *Logger) { l.Debugf("query: %s", "SELECT 1") }, false},
		{"unknown level means info", "loud", func(l *Logger) { l.Debugf("query: %s", "SELECT 1") }, false},
		{"warning alias", "WARNING", func(l *Logger) { l.Info("x") }, false},
		{"error level logs error", "error", func(l *Logger) { l.ErrorWith("x", nil, nil) }, true},
		{"error level skips warn", "error", func(l *Logger) { l.WarnWith("x", nil, nil) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBuffered(tt.level)
			tt.logFunc(log)

			if tt.logged {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLogger_LevelIsPerLogger(t *testing.T) {
	quiet, quietBuf := newBuffered("error")
	loud, loudBuf := newBuffered("debug")

	quiet.Info("dropped")
	loud.Debugf("kept")

	assert.Empty(t, quietBuf.String())
	assert.NotEmpty(t, loudBuf.String())
}

func BenchmarkLogger_InfoWith(b *testing.B) {
	log := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.InfoWith("record updated", Fields{"table": "public.users", "key": "42"})
	}
}
