// Package session keeps networked Game replicas consistent. The host owns the
// authoritative Game; clients mirror it from the host's deltas.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/logging"
	"bigtwo/internal/protocol"
	"bigtwo/internal/transport"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
)

var (
	ErrNotHost      = errors.New("only the host can do that")
	ErrNotConnected = errors.New("not connected to a host")
	ErrJoinTimeout  = errors.New("host did not acknowledge join")
)

// Role selects host or client behaviour.
type Role int

const (
	RoleHost Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "client"
}

// Transport is the part of the connection manager the coordinator drives.
type Transport interface {
	SendTo(ctx context.Context, id string, msg protocol.Message) error
	Broadcast(ctx context.Context, msg protocol.Message, except ...string) error
	Drop(id string) bool
}

// Config configures a Coordinator.
type Config struct {
	Role Role
	// Name is the local player.
	Name string
	// JoinWindow suppresses repeated JOIN_GAME for the same name.
	JoinWindow   time.Duration
	JoinAttempts int
	JoinDelay    time.Duration
}

// Hooks are optional UI callbacks. They run on transport goroutines.
type Hooks struct {
	OnChat       func(text string)
	OnJoin       func(name string)
	OnLeave      func(name string)
	OnGameOver   func(winner string)
	OnResync     func(s app.Snapshot)
	OnDisconnect func()
}

// Coordinator links one Game replica to the network. It is both the Game's
// listener and the transport's handler.
type Coordinator struct {
	cfg    Config
	game   *app.Game
	logger runtime.Logger
	hooks  Hooks
	ctx    context.Context

	net Transport

	mu         sync.Mutex
	peerByName map[string]string
	nameByPeer map[string]string
	joins      map[string]*rate.Limiter
	hostPeer   string
	lobby      []string
	joined     chan struct{}
	joinOnce   sync.Once
}

// New creates a coordinator for g and registers it as a listener. A host
// takes the first free seat for its own player.
func New(ctx context.Context, cfg Config, g *app.Game, logger runtime.Logger, hooks Hooks) (*Coordinator, error) {
	if err := protocol.ValidateName(cfg.Name); err != nil {
		return nil, err
	}
	if cfg.JoinAttempts <= 0 {
		cfg.JoinAttempts = 3
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Coordinator{
		cfg:        cfg,
		game:       g,
		logger:     logging.OrNop(logger),
		hooks:      hooks,
		ctx:        ctx,
		peerByName: make(map[string]string),
		nameByPeer: make(map[string]string),
		joins:      make(map[string]*rate.Limiter),
		joined:     make(chan struct{}),
	}
	if cfg.Role == RoleHost && g.Player(cfg.Name) == nil {
		if err := g.AddPlayer(domain.NewPlayer(cfg.Name, true)); err != nil {
			return nil, err
		}
	}
	g.AddListener(c)
	return c, nil
}

// Bind attaches the transport. The manager needs the coordinator as its
// handler, so binding happens after both exist.
func (c *Coordinator) Bind(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.net = t
}

func (c *Coordinator) Game() *app.Game { return c.game }
func (c *Coordinator) Role() Role      { return c.cfg.Role }
func (c *Coordinator) Name() string    { return c.cfg.Name }

// Lobby returns the player names announced by the host, in join order.
func (c *Coordinator) Lobby() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lobby...)
}

// Start deals a new game. Host only. A finished table is reset first, so the
// same roster plays a rematch.
func (c *Coordinator) Start() error {
	if c.cfg.Role != RoleHost {
		return ErrNotHost
	}
	if c.game.State() == domain.StateGameOver {
		c.game.Reset()
	}
	return c.game.StartGame()
}

// Play applies a local play optimistically; the listener transmits it.
func (c *Coordinator) Play(cards []domain.Card) error {
	_, err := c.game.PlayFor(c.cfg.Name, cards)
	return err
}

// Pass applies a local pass optimistically; the listener transmits it.
func (c *Coordinator) Pass() error {
	return c.game.PassFor(c.cfg.Name)
}

// Chat sends text to every other player.
func (c *Coordinator) Chat(text string) error {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	msg := protocol.Message{Type: protocol.ChatMessage, Payload: c.cfg.Name + ": " + text}
	if c.cfg.Role == RoleHost {
		return c.transport().Broadcast(c.ctx, msg)
	}
	return c.sendToHost(msg)
}

// Join announces the local player to the host and waits for the roster
// acknowledgement, resending up to JoinAttempts times.
func (c *Coordinator) Join(ctx context.Context) error {
	if c.cfg.Role != RoleClient {
		return ErrNotHost
	}
	msg := protocol.Message{Type: protocol.JoinGame, Payload: c.cfg.Name}
	for attempt := 1; attempt <= c.cfg.JoinAttempts; attempt++ {
		if err := c.sendToHost(msg); err != nil {
			return err
		}
		t := time.NewTimer(c.cfg.JoinDelay)
		select {
		case <-c.joined:
			t.Stop()
			return nil
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		c.logger.Debug("Session: join attempt %d/%d unanswered", attempt, c.cfg.JoinAttempts)
	}
	select {
	case <-c.joined:
		return nil
	default:
		return fmt.Errorf("%w after %d attempts", ErrJoinTimeout, c.cfg.JoinAttempts)
	}
}

// Leave tells the host the local player is gone.
func (c *Coordinator) Leave() error {
	if c.cfg.Role == RoleHost {
		return nil
	}
	return c.sendToHost(protocol.Message{Type: protocol.PlayerLeft, Payload: c.cfg.Name})
}

func (c *Coordinator) transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.net == nil {
		return nopTransport{}
	}
	return c.net
}

func (c *Coordinator) sendToHost(msg protocol.Message) error {
	c.mu.Lock()
	host := c.hostPeer
	c.mu.Unlock()
	if host == "" {
		return ErrNotConnected
	}
	return c.transport().SendTo(c.ctx, host, msg)
}

// sendPlayers writes msg to every joined peer except the one bound to skip.
func (c *Coordinator) sendPlayers(msg protocol.Message, skip string) {
	c.mu.Lock()
	targets := make(map[string]string, len(c.peerByName))
	for name, id := range c.peerByName {
		if name != skip {
			targets[name] = id
		}
	}
	c.mu.Unlock()

	t := c.transport()
	for name, id := range targets {
		if err := t.SendTo(c.ctx, id, msg); err != nil {
			c.logger.Warn("Session: send %s to %s failed: %v", msg.Type, name, err)
		}
	}
}

type nopTransport struct{}

func (nopTransport) SendTo(context.Context, string, protocol.Message) error {
	return transport.ErrClosed
}

func (nopTransport) Broadcast(context.Context, protocol.Message, ...string) error {
	return transport.ErrClosed
}

func (nopTransport) Drop(string) bool { return false }
