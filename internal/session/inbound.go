package session

import (
	"errors"
	"strings"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/protocol"
	"bigtwo/internal/transport"

	"golang.org/x/time/rate"
)

// HandlePeerStatus tracks the host connection on clients and turns a lost
// player connection into PLAYER_LEFT on the host.
func (c *Coordinator) HandlePeerStatus(p *transport.Peer, s transport.Status) {
	c.logger.Debug("Session: peer %s is %s", p.ID(), s)

	if c.cfg.Role == RoleClient {
		c.mu.Lock()
		switch s {
		case transport.Connected:
			c.hostPeer = p.ID()
		case transport.Disconnected:
			if c.hostPeer != p.ID() {
				c.mu.Unlock()
				return
			}
			c.hostPeer = ""
		}
		c.mu.Unlock()
		if s == transport.Disconnected {
			c.logger.Warn("Session: lost connection to host")
			if c.hooks.OnDisconnect != nil {
				c.hooks.OnDisconnect()
			}
		}
		return
	}

	if s == transport.Disconnected {
		c.playerLeft(p.ID())
	}
}

// HandleMessage applies one inbound message.
func (c *Coordinator) HandleMessage(p *transport.Peer, m protocol.Message) {
	switch m.Type {
	case protocol.ConnectionEstablished:
		c.logger.Debug("Session: host greeted us")
	case protocol.JoinGame:
		if c.cfg.Role == RoleHost {
			c.hostJoin(p, m.Payload)
		} else {
			c.clientJoin(m.Payload)
		}
	case protocol.GameStart:
		c.logger.Info("Session: game starting")
	case protocol.DealCards:
		c.clientDeal(m.Payload)
	case protocol.PlayRequest:
		c.hostPlayRequest(p, m.Payload)
	case protocol.PlayBroadcast:
		c.clientPlayBroadcast(m.Payload)
	case protocol.Pass:
		if c.cfg.Role == RoleHost {
			c.hostPass(p, m.Payload)
		} else {
			c.clientPass(m.Payload)
		}
	case protocol.PlayerLeft:
		if c.cfg.Role == RoleHost {
			c.playerLeft(p.ID())
			_ = p.Close()
		} else {
			c.clientPlayerLeft(m.Payload)
		}
	case protocol.GameOver:
		if c.game.State() != domain.StateGameOver {
			c.logger.Warn("Session: host reports %s won but the replica is %s", m.Payload, c.game.State())
		}
	case protocol.ChatMessage:
		c.chat(p, m.Payload)
	case protocol.StateSync:
		c.clientSync(m.Payload)
	case protocol.PlayCards:
		c.logger.Debug("Session: ignoring legacy PLAY_CARDS from %s", p.ID())
	default:
		c.logger.Warn("Session: unhandled %s", m.Type)
	}
}

func (c *Coordinator) hostJoin(p *transport.Peer, name string) {
	if err := protocol.ValidateName(name); err != nil {
		c.logger.Warn("Session: rejecting join from %s: %v", p.ID(), err)
		return
	}
	if name == c.cfg.Name {
		c.logger.Warn("Session: peer %s tried to join as the host", p.ID())
		return
	}
	if existing := c.game.Player(name); existing != nil && !existing.Human {
		c.logger.Warn("Session: peer %s tried to take AI seat %s", p.ID(), name)
		return
	}

	c.mu.Lock()
	limiter, ok := c.joins[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.cfg.JoinWindow), 1)
		c.joins[name] = limiter
	}
	fresh := limiter.Allow()
	prevPeer, bound := c.peerByName[name]
	c.mu.Unlock()

	if !fresh && bound && prevPeer == p.ID() {
		// Retransmission: acknowledge again without touching the roster.
		c.ack(p.ID(), name)
		return
	}
	if !fresh && !bound {
		c.logger.Debug("Session: suppressing duplicate join for %s", name)
		return
	}

	if bound && prevPeer != p.ID() {
		c.logger.Info("Session: %s reconnected, replacing peer %s", name, prevPeer)
		c.mu.Lock()
		delete(c.nameByPeer, prevPeer)
		c.mu.Unlock()
		c.transport().Drop(prevPeer)
	}

	if c.game.Player(name) == nil {
		if err := c.game.AddPlayer(domain.NewPlayer(name, true)); err != nil {
			c.logger.Warn("Session: join for %s rejected: %v", name, err)
			return
		}
	}

	c.mu.Lock()
	if old, ok := c.nameByPeer[p.ID()]; ok && old != name {
		delete(c.peerByName, old)
	}
	c.peerByName[name] = p.ID()
	c.nameByPeer[p.ID()] = name
	c.mu.Unlock()

	c.logger.Info("Session: %s joined", name)
	// Tell the newcomer who is already seated, then announce it to everyone.
	for _, other := range c.game.Players() {
		if other.Name != name {
			c.ack(p.ID(), other.Name)
		}
	}
	c.sendPlayers(protocol.Message{Type: protocol.JoinGame, Payload: name}, "")
	if c.game.State() != domain.StateWaiting {
		// Rejoining mid-game: bring the replica up to date.
		c.sendSync(p.ID(), name)
	}
	if c.hooks.OnJoin != nil {
		c.hooks.OnJoin(name)
	}
}

func (c *Coordinator) ack(peerID, name string) {
	if err := c.transport().SendTo(c.ctx, peerID, protocol.Message{Type: protocol.JoinGame, Payload: name}); err != nil {
		c.logger.Warn("Session: join ack to %s failed: %v", peerID, err)
	}
}

func (c *Coordinator) clientJoin(name string) {
	c.mu.Lock()
	known := false
	for _, n := range c.lobby {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		c.lobby = append(c.lobby, name)
	}
	c.mu.Unlock()

	if name == c.cfg.Name {
		c.joinOnce.Do(func() { close(c.joined) })
	}
	if !known && c.hooks.OnJoin != nil {
		c.hooks.OnJoin(name)
	}
}

func (c *Coordinator) playerLeft(peerID string) {
	c.mu.Lock()
	name, ok := c.nameByPeer[peerID]
	if ok {
		delete(c.nameByPeer, peerID)
		if c.peerByName[name] == peerID {
			delete(c.peerByName, name)
		}
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.logger.Info("Session: %s left", name)
	if c.game.State() == domain.StateWaiting {
		if err := c.game.RemovePlayer(name); err != nil {
			c.logger.Warn("Session: remove %s: %v", name, err)
		}
	}
	c.sendPlayers(protocol.Message{Type: protocol.PlayerLeft, Payload: name}, name)
	if c.hooks.OnLeave != nil {
		c.hooks.OnLeave(name)
	}
}

func (c *Coordinator) clientPlayerLeft(name string) {
	c.mu.Lock()
	for i, n := range c.lobby {
		if n == name {
			c.lobby = append(c.lobby[:i], c.lobby[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if c.game.State() == domain.StateWaiting && c.game.Player(name) != nil {
		_ = c.game.RemovePlayer(name)
	}
	if c.hooks.OnLeave != nil {
		c.hooks.OnLeave(name)
	}
}

func (c *Coordinator) clientDeal(payload string) {
	if c.cfg.Role != RoleClient {
		return
	}
	deal, err := protocol.DecodeDeal(payload)
	if err != nil {
		c.logger.Warn("Session: dropping deal: %v", err)
		return
	}
	if deal.Self != "" && deal.Self != c.cfg.Name {
		c.logger.Warn("Session: deal addressed to %s, we are %s", deal.Self, c.cfg.Name)
	}
	hands := make([]app.SeatHand, len(deal.Hands))
	for i, h := range deal.Hands {
		hands[i] = app.SeatHand{Name: h.Name, Cards: h.Cards}
	}
	if err := c.game.LoadDeal(hands); err != nil {
		c.logger.Error("Session: cannot load deal: %v", err)
	}
}

// senderOwns checks that a request names the player bound to the sending peer.
func (c *Coordinator) senderOwns(p *transport.Peer, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nameByPeer[p.ID()] == name
}

func (c *Coordinator) hostPlayRequest(p *transport.Peer, payload string) {
	if c.cfg.Role != RoleHost {
		return
	}
	play, err := protocol.DecodePlay(payload)
	if err != nil {
		c.logger.Warn("Session: dropping play request: %v", err)
		return
	}
	if !c.senderOwns(p, play.Player) {
		c.logger.Warn("Session: peer %s may not play for %s", p.ID(), play.Player)
		return
	}
	if _, err := c.game.PlayFor(play.Player, play.Cards); err != nil {
		c.reject(p, play.Player, err)
	}
}

func (c *Coordinator) hostPass(p *transport.Peer, payload string) {
	pass, err := protocol.DecodePass(payload)
	if err != nil {
		c.logger.Warn("Session: dropping pass: %v", err)
		return
	}
	if !c.senderOwns(p, pass.Player) {
		c.logger.Warn("Session: peer %s may not pass for %s", p.ID(), pass.Player)
		return
	}
	if err := c.game.PassFor(pass.Player); err != nil {
		c.reject(p, pass.Player, err)
	}
}

func (c *Coordinator) clientPlayBroadcast(payload string) {
	if c.cfg.Role != RoleClient {
		return
	}
	play, err := protocol.DecodePlay(payload)
	if err != nil {
		c.logger.Warn("Session: dropping play broadcast: %v", err)
		return
	}
	if play.Player == c.cfg.Name {
		return
	}
	if err := c.game.ApplyRemoteDelta(play.Player, play.Cards, play.Next); err != nil {
		c.logger.Error("Session: cannot apply play by %s: %v", play.Player, err)
	}
}

func (c *Coordinator) clientPass(payload string) {
	pass, err := protocol.DecodePass(payload)
	if err != nil {
		c.logger.Warn("Session: dropping pass: %v", err)
		return
	}
	if pass.Player == c.cfg.Name {
		return
	}
	if err := c.game.ApplyRemoteDelta(pass.Player, nil, pass.Next); err != nil {
		c.logger.Error("Session: cannot apply pass by %s: %v", pass.Player, err)
	}
}

func (c *Coordinator) chat(p *transport.Peer, text string) {
	if c.cfg.Role == RoleHost {
		// Relay to everyone but the author.
		if err := c.transport().Broadcast(c.ctx, protocol.Message{Type: protocol.ChatMessage, Payload: text}, p.ID()); err != nil {
			c.logger.Warn("Session: chat relay: %v", err)
		}
	}
	if c.hooks.OnChat != nil {
		c.hooks.OnChat(text)
	}
}

// reject answers a refused request with the host's full state so the
// requester can undo its optimistic move.
func (c *Coordinator) reject(p *transport.Peer, name string, cause error) {
	if !errors.Is(cause, app.ErrIllegalMove) && !errors.Is(cause, app.ErrInvalidState) {
		c.logger.Error("Session: request from %s failed: %v", name, cause)
	} else {
		c.logger.Info("Session: rejected move by %s: %v", name, cause)
	}

	c.sendSync(p.ID(), name)
}

func (c *Coordinator) sendSync(peerID, name string) {
	payload, err := protocol.EncodeSync(SyncFor(c.game.Snapshot(), name))
	if err != nil {
		c.logger.Error("Session: encode state sync: %v", err)
		return
	}
	if err := c.transport().SendTo(c.ctx, peerID, protocol.Message{Type: protocol.StateSync, Payload: payload}); err != nil {
		c.logger.Warn("Session: state sync to %s failed: %v", name, err)
	}
}

func (c *Coordinator) clientSync(payload string) {
	if c.cfg.Role != RoleClient {
		return
	}
	s, err := protocol.DecodeSync(payload)
	if err != nil {
		c.logger.Warn("Session: dropping state sync: %v", err)
		return
	}
	snap, err := fromSync(s)
	if err != nil {
		c.logger.Warn("Session: dropping state sync: %v", err)
		return
	}
	if err := c.game.Restore(snap); err != nil {
		c.logger.Error("Session: cannot restore state: %v", err)
		return
	}
	c.logger.Info("Session: replica resynchronized, %s to act", strings.TrimSpace(s.Current))
	if c.hooks.OnResync != nil {
		c.hooks.OnResync(snap)
	}
}
