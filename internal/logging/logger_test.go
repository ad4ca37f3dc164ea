package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFormatsAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core))

	child := l.WithField("player", "alice").WithFields(map[string]interface{}{"seat": 2})
	child.Info("Game: %s played %d cards", "alice", 5)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Game: alice played 5 cards", entry.Message)
	assert.Equal(t, map[string]interface{}{"player": "alice", "seat": int64(2)}, entry.ContextMap())
	assert.Equal(t, map[string]interface{}{"player": "alice", "seat": 2}, child.Fields())

	// The parent is unaffected by children.
	assert.Empty(t, l.Fields())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false)
	require.Error(t, err)

	l, err := New("debug", true)
	require.NoError(t, err)
	l.Debug("ok")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := NewNop()
	assert.Same(t, l, OrNop(l))
}
