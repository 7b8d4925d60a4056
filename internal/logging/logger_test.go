package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWriter(t *testing.T) {
	t.Run("Error key renamed", func(t *testing.T) {
		var buf bytes.Buffer
		NewWriter(&buf, slog.LevelInfo, FormatText).Info("x", "error", errors.New("boom"))
		assert.Contains(t, buf.String(), "err=boom")
	})

	t.Run("JSON format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWriter(&buf, slog.LevelInfo, FormatJSON).Info("hello", "file", "a.xml")
		assert.Contains(t, buf.String(), `"file":"a.xml"`)
	})

	t.Run("Level filters", func(t *testing.T) {
		var buf bytes.Buffer
		NewWriter(&buf, slog.LevelWarn, FormatText).Info("hidden")
		assert.Empty(t, buf.String())
	})
}
