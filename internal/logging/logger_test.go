package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}

func TestNewDevelopment(t *testing.T) {
	logger, err := New(DevelopmentConfig())
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestDefaultConfigIsInfo(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestComponentAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &Logger{Logger: zap.New(core)}

	base.Component("session").
		WithFields(zap.String("session_id", "default/pod-a")).
		Info("terminal created")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session", entries[0].LoggerName)
	assert.Equal(t, "default/pod-a", entries[0].ContextMap()["session_id"])
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Component("x").Info("discarded")
	})
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
