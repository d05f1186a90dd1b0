package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedAdapter(level zapcore.Level) (*ZapAdapter, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapAdapter(zap.New(core)), logs
}

func TestZapAdapter_InfoCarriesFields(t *testing.T) {
	a, logs := observedAdapter(zapcore.InfoLevel)

	a.Info(context.Background(), "looking at repository", map[string]any{
		"repository": "repoA",
		"progress":   "1/3",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "looking at repository", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "repoA", fields["repository"])
	assert.Equal(t, "1/3", fields["progress"])
}

func TestZapAdapter_DebugFilteredAtInfoLevel(t *testing.T) {
	a, logs := observedAdapter(zapcore.InfoLevel)

	a.Debug(context.Background(), "looking at commit", nil)

	assert.Zero(t, logs.Len())
}

func TestZapAdapter_ErrorAttachesError(t *testing.T) {
	a, logs := observedAdapter(zapcore.InfoLevel)

	a.Error(context.Background(), "commit task failed", errors.New("boom"), map[string]any{
		"worker": "worker-1",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "worker-1", fields["worker"])
}

func TestZapAdapter_ErrorWithNilError(t *testing.T) {
	a, logs := observedAdapter(zapcore.InfoLevel)

	a.Error(context.Background(), "something went wrong", nil, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "error")
}

func TestNewZapLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{name: "debug", level: "debug"},
		{name: "info", level: "info"},
		{name: "warn", level: "warn"},
		{name: "unknown falls back", level: "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewZapLogger(tt.level)

			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}
