package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	} {
		got, ok := ParseLevel(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}
	_, ok := ParseLevel("loud")
	require.False(t, ok)
	_, ok = ParseLevel("")
	require.False(t, ok)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvLogLevel:     "error",
		EnvLogTimestamp: "false",
		EnvLogNoColor:   "1",
		EnvLogJSON:      "not-a-bool",
	}
	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	require.Equal(t, zerolog.ErrorLevel, cfg.Level)
	require.False(t, cfg.Timestamp)
	require.True(t, cfg.NoColor)
	require.False(t, cfg.JSON)

	test := DefaultConfig(ProfileTest)
	require.Equal(t, zerolog.DebugLevel, test.Level)
	require.False(t, test.Timestamp)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: zerolog.InfoLevel, JSON: true, Output: &buf})
		l.Debug().Msg("hidden")
		l.Info().Str("file", "a.png").Msg("extracted")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "extracted", rec["message"])
		require.Equal(t, "a.png", rec["file"])
		require.NotContains(t, rec, "time")
	})
	t.Run("Console", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: zerolog.DebugLevel, NoColor: true, Output: &buf})
		l.Warn().Msg("crc mismatch")
		require.Contains(t, buf.String(), "WRN")
		require.Contains(t, buf.String(), "crc mismatch")
	})
}
