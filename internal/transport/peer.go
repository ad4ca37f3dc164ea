package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"bigtwo/internal/protocol"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Peer is one live connection. Exactly one read loop owns the socket; writes
// are serialized.
type Peer struct {
	id     string
	conn   net.Conn
	cfg    Config
	logger runtime.Logger

	mu     sync.Mutex
	status Status

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func newPeer(conn net.Conn, cfg Config, logger runtime.Logger) *Peer {
	return &Peer{
		id:     uuid.NewString(),
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		status: Connecting,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ID is unique per connection, not per player.
func (p *Peer) ID() string { return p.id }

func (p *Peer) RemoteAddr() string {
	if p.conn == nil {
		return ""
	}
	if a := p.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (p *Peer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Done is closed once the read loop has exited and the socket is released.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) setStatus(s Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == s {
		return false
	}
	p.status = s
	return true
}

// Send frames and writes m. Transient write failures are retried; when the
// budget runs out the peer is closed.
func (p *Peer) Send(ctx context.Context, m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	written := 0
	err = retry(ctx, p.cfg.WriteAttempts, p.cfg.WriteDelay, func(attempt int) error {
		if p.isClosed() {
			return permanent(ErrClosed)
		}
		if p.cfg.WriteTimeout > 0 {
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
		}
		n, werr := p.conn.Write(frame[written:])
		written += n
		if werr != nil {
			if errors.Is(werr, net.ErrClosed) {
				return permanent(fmt.Errorf("%w: %v", ErrClosed, werr))
			}
			p.logger.Warn("Transport: write to %s failed (attempt %d/%d): %v", p.id, attempt, p.cfg.WriteAttempts, werr)
			return werr
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			p.logger.Error("Transport: dropping peer %s after write failures: %v", p.id, err)
		}
		_ = p.Close()
		return err
	}
	return nil
}

// Close releases the socket. The read loop notices and exits.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.conn != nil {
			err = p.conn.Close()
		}
	})
	return err
}

func (p *Peer) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// wait blocks until the read loop has exited or d elapses.
func (p *Peer) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// readLoop reads until the socket fails, dispatching every complete line.
// onExit runs after the socket is closed and before Done is signalled.
func (p *Peer) readLoop(h Handler, onExit func(*Peer)) {
	defer func() {
		_ = p.Close()
		if p.setStatus(Disconnected) {
			h.HandlePeerStatus(p, Disconnected)
		}
		onExit(p)
		close(p.done)
	}()

	buf := make([]byte, p.cfg.ReadBufferSize)
	splitter := protocol.NewSplitter(p.cfg.MaxLineSize)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			lines, overflow := splitter.Feed(buf[:n])
			if overflow {
				p.logger.Warn("Transport: peer %s sent an oversized line, discarded", p.id)
			}
			for _, line := range lines {
				p.dispatch(h, line)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !p.isClosed() {
				p.logger.Warn("Transport: read from %s failed: %v", p.id, err)
			}
			return
		}
	}
}

func (p *Peer) dispatch(h Handler, line string) {
	if line == "" {
		return
	}
	msg, err := protocol.Decode(line)
	if err != nil {
		p.logger.Warn("Transport: dropping message from %s: %v", p.id, err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Transport: handler panicked on %s from %s: %v", msg.Type, p.id, r)
		}
	}()
	h.HandleMessage(p, msg)
}
