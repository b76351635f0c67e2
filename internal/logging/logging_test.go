package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{7, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 1)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.NotContains(t, entry, "caller")
}

func TestNewAddsCallerWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf, 2), "watch")
	logger.Debug().Msg("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "caller")
	assert.Equal(t, "watch", entry["component"])
}

func TestSetupWritesLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger, closeLog := Setup(1, true)
	logger.Info().Msg("hello file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(FilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Equal(t, "pbvars.log", filepath.Base(FilePath()))

	assert.ErrorIs(t, closeLog(), os.ErrClosed)
	log.Info().Msg("after close")
	data, err = os.ReadFile(FilePath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close", "global logger drops the closed file")
}
