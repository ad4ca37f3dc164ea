package transport

import (
	"context"
	"net"
	"testing"

	"bigtwo/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocket_RoundTrip(t *testing.T) {
	hostRec := newRecorder()
	host := NewManager(testConfig(), hostRec)
	defer host.Close()

	ln, err := ListenWebSocket("127.0.0.1:0", "/bigtwo", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Serve(ctx, ln)

	clientRec := newRecorder()
	client := NewManager(testConfig(), clientRec, WithDialer(DialWebSocket("/bigtwo")))
	defer client.Close()

	addr := ln.Addr().(*net.TCPAddr).String()
	p, err := client.Dial(ctx, addr)
	require.NoError(t, err)

	assert.Equal(t, protocol.ConnectionEstablished, clientRec.next(t).Type)

	require.NoError(t, p.Send(ctx, protocol.Message{Type: protocol.JoinGame, Payload: "alice"}))
	assert.Equal(t, protocol.Message{Type: protocol.JoinGame, Payload: "alice"}, hostRec.next(t))
}
