package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	l.Info().Str("collection", "products").Msg("saved")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "saved", m["message"])
	assert.Equal(t, "products", m["collection"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, LogConfig{Level: "WARN", Format: "json"})
	require.NoError(t, err)

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	l.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}
