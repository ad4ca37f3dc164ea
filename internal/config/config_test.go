package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bigtwo.toml")
	data := `
[player]
name = "alice"

[game]
strategy = "simple"
ai_delay = "750ms"

[network]
transport = "websocket"
connect_attempts = 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Player.Name)
	assert.Equal(t, "simple", cfg.Game.Strategy)
	assert.Equal(t, 750*time.Millisecond, cfg.GetAIDelay())
	assert.Equal(t, TransportWebSocket, cfg.Network.Transport)
	assert.Equal(t, ":7777", cfg.Network.Listen)

	tc := cfg.TransportConfig()
	assert.Equal(t, 5, tc.ConnectAttempts)
	assert.Equal(t, 2*time.Second, tc.ConnectDelay)
	assert.Equal(t, 3, tc.MaxPeers)
	assert.Equal(t, 1024, tc.ReadBufferSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":         "[game\nstrategy=",
		"duration":       "[network]\nconnect_delay = \"soon\"",
		"strategy":       "[game]\nstrategy = \"god\"",
		"lua no script":  "[game]\nstrategy = \"lua\"",
		"transport":      "[network]\ntransport = \"udp\"",
		"too many peers": "[network]\nmax_peers = 4",
		"zero attempts":  "[network]\nwrite_attempts = 0",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bigtwo.toml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bigtwo.toml")
	cfg := DefaultConfig()
	cfg.Player.Name = "bob"
	cfg.Game.Seed = 42
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestJoinDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3*time.Second, cfg.GetJoinWindow())
	assert.Equal(t, 500*time.Millisecond, cfg.GetJoinDelay())
}
