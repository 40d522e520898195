package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantInfo  bool
		wantDebug bool
	}{
		{"default", Options{}, false, false},
		{"verbose", Options{Verbose: true}, true, false},
		{"debug", Options{Debug: true}, true, true},
		{"debug wins", Options{Verbose: true, Debug: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(tt.opts)
			l.SetOutput(&buf)

			l.Info().Msg("info-line")
			l.Debug().Msg("debug-line")

			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info-line")))
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug-line")))
		})
	}
}

func TestJSONLinesCarryRunID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Options{JSON: true, RunID: "run-42"})
	l.SetOutput(&buf)

	l.Warn().Str("phase", "publish").Msg("throttled")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "run-42", line["run_id"])
	assert.Equal(t, "publish", line["phase"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "throttled", line["message"])
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
