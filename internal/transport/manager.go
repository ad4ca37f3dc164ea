package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"bigtwo/internal/logging"
	"bigtwo/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// DialFunc opens a byte stream to addr.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// Manager owns every peer of one node. A host feeds it accepted sockets via
// Serve; a client opens its single connection with Dial.
type Manager struct {
	cfg     Config
	handler Handler
	logger  runtime.Logger
	dial    DialFunc

	mu        sync.Mutex
	peers     map[string]*Peer
	listeners []net.Listener
	closed    bool
	wg        sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l runtime.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDialer replaces the default TCP dialer, e.g. with DialWebSocket.
func WithDialer(d DialFunc) Option {
	return func(m *Manager) { m.dial = d }
}

// NewManager creates a manager reporting to h.
func NewManager(cfg Config, h Handler, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg.withDefaults(),
		handler: h,
		peers:   make(map[string]*Peer),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	if m.dial == nil {
		var d net.Dialer
		m.dial = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	return m
}

// Serve runs the host accept loop until ctx ends or the manager is closed.
// While MaxPeers peers are live it stops accepting and backs off.
func (m *Manager) Serve(ctx context.Context, ln net.Listener) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = ln.Close()
		return ErrClosed
	}
	m.listeners = append(m.listeners, ln)
	m.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	m.logger.Info("Transport: accepting on %s", ln.Addr())
	for {
		if ctx.Err() != nil || m.isClosed() {
			return nil
		}
		if m.PeerCount() >= m.cfg.MaxPeers {
			m.logger.Debug("Transport: %d peers connected, waiting %s", m.cfg.MaxPeers, m.cfg.CapacityBackoff)
			if !sleep(ctx, m.cfg.CapacityBackoff) {
				return nil
			}
			continue
		}

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || m.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			m.logger.Warn("Transport: accept failed, retrying in %s: %v", m.cfg.AcceptRetryDelay, err)
			if !sleep(ctx, m.cfg.AcceptRetryDelay) {
				return nil
			}
			continue
		}

		p, err := m.Attach(conn)
		if err != nil {
			m.logger.Warn("Transport: rejecting %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}
		if err := p.Send(ctx, protocol.Message{Type: protocol.ConnectionEstablished, Payload: "connected"}); err != nil {
			m.logger.Warn("Transport: greeting %s failed: %v", p.ID(), err)
		}
	}
}

// Dial connects to a host, retrying up to ConnectAttempts times. The peer is
// reported Connecting before the first attempt and Disconnected if every
// attempt fails. Any existing peer is replaced, since a client holds at most
// one connection.
func (m *Manager) Dial(ctx context.Context, addr string) (*Peer, error) {
	p := newPeer(nil, m.cfg, m.logger)
	m.handler.HandlePeerStatus(p, Connecting)

	var conn net.Conn
	err := retry(ctx, m.cfg.ConnectAttempts, m.cfg.ConnectDelay, func(attempt int) error {
		if m.isClosed() {
			return permanent(ErrClosed)
		}
		c, err := m.dial(ctx, addr)
		if err != nil {
			m.logger.Warn("Transport: connect to %s failed (attempt %d/%d): %v", addr, attempt, m.cfg.ConnectAttempts, err)
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		m.abandon(p)
		return nil, err
	}

	for _, old := range m.Peers() {
		m.Drop(old.ID())
	}
	p.conn = conn
	if err := m.register(p); err != nil {
		m.abandon(p)
		return nil, err
	}
	m.start(p)
	m.logger.Info("Transport: connected to %s", addr)
	return p, nil
}

// Attach registers an established socket and starts its read loop.
func (m *Manager) Attach(conn net.Conn) (*Peer, error) {
	p := newPeer(conn, m.cfg, m.logger)
	if err := m.register(p); err != nil {
		return nil, err
	}
	m.handler.HandlePeerStatus(p, Connecting)
	m.start(p)
	return p, nil
}

func (m *Manager) register(p *Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if len(m.peers) >= m.cfg.MaxPeers {
		return fmt.Errorf("%w: %d peers", ErrCapacity, m.cfg.MaxPeers)
	}
	m.peers[p.id] = p
	m.wg.Add(1)
	return nil
}

// start marks a registered peer Connected and runs its read loop.
func (m *Manager) start(p *Peer) {
	p.setStatus(Connected)
	m.handler.HandlePeerStatus(p, Connected)

	go func() {
		defer m.wg.Done()
		p.readLoop(m.handler, m.forget)
	}()
}

// abandon releases a peer whose read loop never started.
func (m *Manager) abandon(p *Peer) {
	_ = p.Close()
	if p.setStatus(Disconnected) {
		m.handler.HandlePeerStatus(p, Disconnected)
	}
	close(p.done)
}

func (m *Manager) forget(p *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.peers[p.id] == p {
		delete(m.peers, p.id)
	}
}

// Drop closes a peer and waits up to DrainTimeout for its read loop to exit.
func (m *Manager) Drop(id string) bool {
	p := m.Peer(id)
	if p == nil {
		return false
	}
	_ = p.Close()
	if !p.wait(m.cfg.DrainTimeout) {
		m.logger.Warn("Transport: peer %s did not drain within %s", id, m.cfg.DrainTimeout)
		return false
	}
	return true
}

// Peer returns a live peer by ID.
func (m *Manager) Peer(id string) *Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[id]
}

// Peers returns the live peers.
func (m *Manager) Peers() []*Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out
}

func (m *Manager) PeerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// SendTo writes to one peer.
func (m *Manager) SendTo(ctx context.Context, id string, msg protocol.Message) error {
	p := m.Peer(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, id)
	}
	return p.Send(ctx, msg)
}

// Broadcast writes to every live peer except the listed IDs. Failures are
// joined; a failing peer does not stop delivery to the rest.
func (m *Manager) Broadcast(ctx context.Context, msg protocol.Message, except ...string) error {
	skip := make(map[string]bool, len(except))
	for _, id := range except {
		skip[id] = true
	}
	var errs []error
	for _, p := range m.Peers() {
		if skip[p.id] {
			continue
		}
		if err := p.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close stops accepting, closes every peer and waits for their read loops.
// It is safe to call more than once, but not from a Handler callback.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	listeners := m.listeners
	m.listeners = nil
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	for _, p := range peers {
		_ = p.Close()
	}
	m.wg.Wait()
	return nil
}
