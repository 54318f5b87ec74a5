package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gridpreview/pkg/config"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level}, &buf)
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "json format", cfg: &config.LoggingConfig{Level: "debug", Format: "json"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "app.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"trace-ish", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	l.Error("also shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestDefaultFields(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.Info("hello")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "gridpreview", entries[0]["app"])
	assert.Contains(t, entries[0], "time")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	child := l.WithField("username", "natgeo").WithFields(map[string]interface{}{
		"count": 12,
		"ok":    true,
	})
	child.Info("child")
	l.Info("parent")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "natgeo", entries[0]["username"])
	assert.Equal(t, float64(12), entries[0]["count"])
	assert.Equal(t, true, entries[0]["ok"])
	assert.NotContains(t, entries[1], "username")
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.WithError(errors.New("upstream timeout")).Error("fetch failed")
	assert.Same(t, l, l.WithError(nil))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "upstream timeout", entries[0]["error"])
}

func TestStructuredFieldTypes(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.DebugWithFields("typed", map[string]interface{}{
		"duration": 1500 * time.Millisecond,
		"ids":      []string{"a", "b"},
		"ratio":    0.5,
		"cause":    errors.New("boom"),
	})

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"a", "b"}, entries[0]["ids"])
	assert.Equal(t, 0.5, entries[0]["ratio"])
	assert.Equal(t, "boom", entries[0]["cause"])
	assert.Contains(t, entries[0], "duration")
}

func TestTestLoggerCapturesDerivedLoggers(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("component", "server").WithError(errors.New("bind")).Error("listen failed")
	tl.InfoWithFields("ready", map[string]interface{}{"port": "3000"})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "server", msgs[0].Fields["component"])
	assert.EqualError(t, msgs[0].Error, "bind")
	assert.Equal(t, "3000", msgs[1].Fields["port"])
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessage("ready"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpersUseGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	t.Cleanup(func() { SetLogger(NewNopLogger()) })

	LogRequest("GET", "/api/fetchPosts", 200, 10*time.Millisecond, "127.0.0.1")
	LogRequest("GET", "/api/fetchPosts", 400, time.Millisecond, "127.0.0.1")
	LogRequest("GET", "/api/image-proxy", 500, time.Millisecond, "127.0.0.1")
	LogUpstreamCall("fetch_posts", "natgeo", 503, time.Second, errors.New("unavailable"))
	LogComponentStart("prefetch", map[string]interface{}{"workers": 3})
	LogComponentStop("prefetch", "shutdown")

	assert.Len(t, tl.GetMessagesByLevel("INFO"), 3)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.Empty(t, tl.GetMessagesByLevel("DEBUG"))
}
