// Package transport manages the byte-stream connections between a host and
// its clients: one read loop per peer, bounded write and dial retries, and
// status reporting to a Handler.
package transport

import (
	"errors"
	"time"

	"bigtwo/internal/protocol"
)

var (
	ErrTransport   = errors.New("transport failure")
	ErrClosed      = errors.New("transport closed")
	ErrCapacity    = errors.New("peer capacity reached")
	ErrUnknownPeer = errors.New("unknown peer")
)

// Status is a peer's connection state.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Handler receives decoded messages and status changes. Calls for a single
// peer come from that peer's read loop and are never concurrent with each
// other.
type Handler interface {
	HandleMessage(p *Peer, m protocol.Message)
	HandlePeerStatus(p *Peer, s Status)
}

// Config holds the connection limits and retry budgets.
type Config struct {
	MaxPeers         int
	AcceptRetryDelay time.Duration
	CapacityBackoff  time.Duration
	ConnectAttempts  int
	ConnectDelay     time.Duration
	WriteAttempts    int
	WriteDelay       time.Duration
	WriteTimeout     time.Duration
	ReadBufferSize   int
	// MaxLineSize bounds a partial line kept between reads.
	MaxLineSize  int
	DrainTimeout time.Duration
}

// DefaultConfig returns the standard table limits.
func DefaultConfig() Config {
	return Config{
		MaxPeers:         3,
		AcceptRetryDelay: 3 * time.Second,
		CapacityBackoff:  5 * time.Second,
		ConnectAttempts:  3,
		ConnectDelay:     2 * time.Second,
		WriteAttempts:    3,
		WriteDelay:       time.Second,
		WriteTimeout:     5 * time.Second,
		ReadBufferSize:   1024,
		MaxLineSize:      64 * 1024,
		DrainTimeout:     2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPeers <= 0 {
		c.MaxPeers = d.MaxPeers
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = d.ConnectAttempts
	}
	if c.WriteAttempts <= 0 {
		c.WriteAttempts = d.WriteAttempts
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = d.MaxLineSize
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	return c
}
