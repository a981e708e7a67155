package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"":        LogLevelInfo,
		"DEBUG":   LogLevelDebug,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestNew_ZapJSON(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	With(l, "run_id", "r1").Info("agent.tool.dispatched", "tool", "read_file", "success", true)

	require.NoError(t, l.(*ZapAdapter).Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "agent.tool.dispatched", entry["msg"])
	assert.Equal(t, "read_file", entry["tool"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, true, entry["success"])
}

func TestNew_Slog(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "warn", Backend: "slog", Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	With(l, "meeting", "parallel").Warn("meeting.specialist.failed", "specialist", "Data Analyst")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "meeting.specialist.failed", entry["msg"])
	assert.Equal(t, "parallel", entry["meeting"])
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "syslog"})
	assert.Error(t, err)
}

func TestWith_NoOp(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.Equal(t, l, With(l, "k", "v"))
}
