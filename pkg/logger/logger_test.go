package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNamedUsesRoot(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Root()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	Named("monitor").Infow("run finished", "new", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "monitor", entries[0].LoggerName)
	assert.Equal(t, "run finished", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["new"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	prev := Root()
	t.Cleanup(func() { Set(prev) })

	assert.Error(t, Init(Options{Level: "loud"}))
	assert.NoError(t, Init(Options{Level: "debug", Format: "json"}))
}
