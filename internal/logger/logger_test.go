package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Level: "info", Format: "json", Output: buf})

	log.Info().Str("project", "p1").Msg("schema loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "schema loaded", entry["message"])
	assert.Equal(t, "p1", entry["project"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Level: "warn", Output: buf})

	log.Debug().Msg("dropped")
	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error().Msg("nowhere")
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
