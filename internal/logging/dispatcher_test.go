package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.Debug("sink registered", "name", "csv", "buffered", false)
	l.Info("dispatcher closed")
	l.Error("sink failed", "name", "influx", "error", "timeout")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	for _, line := range lines {
		assert.Equal(t, "dispatcher", line["component"])
	}

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "sink registered", lines[0]["message"])
	assert.Equal(t, "csv", lines[0]["name"])
	assert.Equal(t, false, lines[0]["buffered"])

	assert.Equal(t, "info", lines[1]["level"])

	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "influx", lines[2]["name"])
	assert.Equal(t, "timeout", lines[2]["error"])
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want map[string]any
	}{
		{name: "empty", in: nil, want: map[string]any{}},
		{name: "pairs", in: []any{"a", 1, "b", "x"}, want: map[string]any{"a": 1, "b": "x"}},
		{name: "odd trailing value kept as bad key", in: []any{"a", 1, "b"}, want: map[string]any{"a": 1, badKey: "b"}},
		{name: "non-string key kept as bad key", in: []any{42, "v", "k", true}, want: map[string]any{badKey: "42=v", "k": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toFields(tt.in))
		})
	}
}
