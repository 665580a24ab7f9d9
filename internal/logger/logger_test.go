package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)

	l, err := New("debug", "console")
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestZapLoggerWritesEventAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := fromZap(zap.New(core))

	l.WarnObj("provider failed", "provider_fetch_failed", map[string]any{
		"provider": "nyt",
		"status":   429,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "provider failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "provider_fetch_failed", ctx["event"])
	assert.Equal(t, "nyt", ctx["provider"])
	assert.EqualValues(t, 429, ctx["status"])
}

func TestEnsure(t *testing.T) {
	assert.IsType(t, NopLogger{}, Ensure(nil))

	l := fromZap(nil)
	assert.Same(t, l, Ensure(l))
}
