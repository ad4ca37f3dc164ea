package session

import (
	"bigtwo/internal/app"
	"bigtwo/internal/protocol"
)

// GameStarted sends the deal. Only the host deals; a client's replica is
// started from DEAL_CARDS and emits a remote event.
func (c *Coordinator) GameStarted(g *app.Game, ev app.Event) {
	if ev.Remote || c.cfg.Role != RoleHost {
		return
	}
	if err := c.transport().Broadcast(c.ctx, protocol.Message{Type: protocol.GameStart, Payload: "start"}); err != nil {
		c.logger.Warn("Session: GAME_START broadcast: %v", err)
	}

	hands := seatHands(g.Snapshot())
	c.mu.Lock()
	targets := make(map[string]string, len(c.peerByName))
	for name, id := range c.peerByName {
		targets[name] = id
	}
	c.mu.Unlock()

	for name, id := range targets {
		payload, err := protocol.EncodeDeal(protocol.Deal{Hands: hands, Self: name})
		if err != nil {
			c.logger.Error("Session: encode deal for %s: %v", name, err)
			continue
		}
		if err := c.transport().SendTo(c.ctx, id, protocol.Message{Type: protocol.DealCards, Payload: payload}); err != nil {
			c.logger.Warn("Session: deal to %s failed: %v", name, err)
		}
	}
}

// CardsPlayed transmits a locally decided play: the host broadcasts the
// canonical delta, a client asks the host.
func (c *Coordinator) CardsPlayed(_ *app.Game, ev app.Event) {
	if ev.Remote {
		return
	}
	switch c.cfg.Role {
	case RoleHost:
		payload := protocol.EncodePlay(protocol.Play{Player: ev.Player, Cards: ev.Cards, Next: ev.Next})
		c.sendPlayers(protocol.Message{Type: protocol.PlayBroadcast, Payload: payload}, ev.Player)
	case RoleClient:
		if ev.Player != c.cfg.Name {
			return
		}
		payload := protocol.EncodePlay(protocol.Play{Player: ev.Player, Cards: ev.Cards})
		if err := c.sendToHost(protocol.Message{Type: protocol.PlayRequest, Payload: payload}); err != nil {
			c.logger.Warn("Session: PLAY_REQUEST failed: %v", err)
		}
	}
}

// PlayerPassed transmits a locally decided pass.
func (c *Coordinator) PlayerPassed(_ *app.Game, ev app.Event) {
	if ev.Remote {
		return
	}
	switch c.cfg.Role {
	case RoleHost:
		payload := protocol.EncodePass(protocol.PassMove{Player: ev.Player, Next: ev.Next})
		c.sendPlayers(protocol.Message{Type: protocol.Pass, Payload: payload}, ev.Player)
	case RoleClient:
		if ev.Player != c.cfg.Name {
			return
		}
		if err := c.sendToHost(protocol.Message{Type: protocol.Pass, Payload: ev.Player}); err != nil {
			c.logger.Warn("Session: PASS failed: %v", err)
		}
	}
}

// GameOver announces the winner to every client.
func (c *Coordinator) GameOver(_ *app.Game, ev app.Event) {
	if c.hooks.OnGameOver != nil {
		c.hooks.OnGameOver(ev.Player)
	}
	if ev.Remote || c.cfg.Role != RoleHost {
		return
	}
	c.sendPlayers(protocol.Message{Type: protocol.GameOver, Payload: ev.Player}, "")
}

func seatHands(s app.Snapshot) []protocol.Hand {
	hands := make([]protocol.Hand, len(s.Players))
	for i, p := range s.Players {
		hands[i] = protocol.Hand{Name: p.Name, Cards: p.Hand}
	}
	return hands
}
