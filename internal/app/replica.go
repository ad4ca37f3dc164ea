package app

import (
	"fmt"

	"bigtwo/internal/domain"
)

// SeatHand is one player's dealt hand in seat order.
type SeatHand struct {
	Name  string
	Cards []domain.Card
}

// LoadDeal builds the replica from a host's deal instead of shuffling locally.
// Existing players are reused by name; new names join as human seats.
func (g *Game) LoadDeal(hands []SeatHand) error {
	g.mu.Lock()
	err := g.loadDealLocked(hands)
	g.mu.Unlock()
	g.flush()
	return err
}

func (g *Game) loadDealLocked(hands []SeatHand) error {
	if len(hands) < MinPlayersToStartGame {
		return fmt.Errorf("%w: deal has %d hands", ErrTooFewPlayers, len(hands))
	}
	if len(hands) > MaxPlayers {
		return fmt.Errorf("%w: deal has %d hands", ErrTooManyPlayers, len(hands))
	}

	players := make([]*domain.Player, 0, len(hands))
	seen := make(map[string]bool, len(hands))
	for _, h := range hands {
		if h.Name == "" || seen[h.Name] {
			return fmt.Errorf("%w: bad seat name %q in deal", ErrDuplicatePlayer, h.Name)
		}
		seen[h.Name] = true

		p := g.playerLocked(h.Name)
		if p == nil {
			p = domain.NewPlayer(h.Name, true)
		}
		players = append(players, p)
	}
	for i, p := range players {
		p.SetHand(hands[i].Cards)
	}

	g.players = players
	g.beginLocked()
	g.logger.Info("Game: loaded deal for %d players, %s leads", len(players), players[g.currentIdx].Name)
	g.emitLocked(Event{Kind: EventGameStarted, Next: players[g.currentIdx].Name, Remote: true})
	return nil
}

// ApplyRemoteDelta applies a move already validated by the host. A non-empty
// cards list is a play, an empty one a pass. The turn pointer is set to next
// directly instead of being derived from the local turn arithmetic.
//
// A card the named player does not hold in this replica is cloned into the
// hand before removal and counted as drift.
func (g *Game) ApplyRemoteDelta(name string, cards []domain.Card, next string) error {
	g.mu.Lock()
	err := g.applyRemoteLocked(name, cards, next)
	g.mu.Unlock()
	g.flush()
	return err
}

func (g *Game) applyRemoteLocked(name string, cards []domain.Card, next string) error {
	if g.state != domain.StatePlaying {
		return fmt.Errorf("%w: remote delta while %s", ErrInvalidState, g.state)
	}
	idx := g.indexOfLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	nextIdx := (idx + 1) % len(g.players)
	if next != "" {
		nextIdx = g.indexOfLocked(next)
		if nextIdx < 0 {
			return fmt.Errorf("%w: next player %s", ErrUnknownPlayer, next)
		}
	}
	mover := g.players[idx]

	if len(cards) == 0 {
		g.passCount++
		cleared := false
		if nextIdx == g.lastIdx {
			g.lastPattern = nil
			g.passCount = 0
			cleared = true
		}
		g.currentIdx = nextIdx
		g.emitLocked(Event{
			Kind:         EventPlayerPassed,
			Player:       name,
			Next:         g.players[nextIdx].Name,
			TrickCleared: cleared,
			Remote:       true,
		})
		return nil
	}

	for _, c := range cards {
		if !mover.HasCard(c) {
			g.drift++
			g.logger.Warn("Game: replica drift, cloning %s into %s's hand (drift=%d)", c, name, g.drift)
			mover.AddCard(c)
		}
	}
	if err := mover.Select(cards); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	played := mover.CommitSelection()

	pattern := domain.IdentifyPattern(played)
	if pattern.IsValid() {
		g.lastPattern = &pattern
	} else {
		g.logger.Warn("Game: remote play by %s is not a valid pattern: %s", name, domain.FormatCards(played))
	}
	g.lastIdx = idx
	g.passCount = 0

	if mover.HandSize() == 0 {
		g.state = domain.StateGameOver
		g.emitLocked(Event{Kind: EventCardsPlayed, Player: name, Cards: played, Pattern: pattern, Remote: true})
		g.emitLocked(Event{Kind: EventGameOver, Player: name, Remote: true})
		return nil
	}

	g.currentIdx = nextIdx
	g.emitLocked(Event{
		Kind:    EventCardsPlayed,
		Player:  name,
		Cards:   played,
		Pattern: pattern,
		Next:    g.players[nextIdx].Name,
		Remote:  true,
	})
	return nil
}

// PlayerSnapshot is a copy of one seat.
type PlayerSnapshot struct {
	Name  string
	Human bool
	Hand  []domain.Card
}

// Snapshot is a consistent copy of the whole game.
type Snapshot struct {
	State           domain.State
	Players         []PlayerSnapshot
	CurrentIdx      int
	LastIdx         int
	LastPattern     *domain.CardPattern
	PassCount       int
	OpeningRequired bool
}

// CurrentName returns the name of the player to act, or "" with no players.
func (s Snapshot) CurrentName() string {
	if s.CurrentIdx < 0 || s.CurrentIdx >= len(s.Players) {
		return ""
	}
	return s.Players[s.CurrentIdx].Name
}

// LastName returns the author of the last play, or "" before the first play.
func (s Snapshot) LastName() string {
	if s.LastIdx < 0 || s.LastIdx >= len(s.Players) {
		return ""
	}
	return s.Players[s.LastIdx].Name
}

// Snapshot copies the current state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		State:           g.state,
		Players:         make([]PlayerSnapshot, len(g.players)),
		CurrentIdx:      g.currentIdx,
		LastIdx:         g.lastIdx,
		PassCount:       g.passCount,
		OpeningRequired: g.openingRequired,
	}
	for i, p := range g.players {
		s.Players[i] = PlayerSnapshot{Name: p.Name, Human: p.Human, Hand: p.Hand()}
	}
	if g.lastPattern != nil {
		lp := *g.lastPattern
		lp.Cards = append([]domain.Card(nil), lp.Cards...)
		s.LastPattern = &lp
	}
	return s
}

// Restore replaces the replica with a snapshot received from the host.
func (g *Game) Restore(s Snapshot) error {
	g.mu.Lock()
	err := g.restoreLocked(s)
	g.mu.Unlock()
	g.flush()
	return err
}

func (g *Game) restoreLocked(s Snapshot) error {
	n := len(s.Players)
	if n > MaxPlayers {
		return fmt.Errorf("%w: snapshot has %d players", ErrTooManyPlayers, n)
	}
	if n > 0 && (s.CurrentIdx < 0 || s.CurrentIdx >= n || s.LastIdx < -1 || s.LastIdx >= n) {
		return fmt.Errorf("%w: snapshot turn pointers out of range", ErrInvalidState)
	}
	if s.LastPattern != nil && !s.LastPattern.IsValid() {
		return fmt.Errorf("%w: snapshot lead pattern is invalid", ErrInvalidState)
	}

	players := make([]*domain.Player, n)
	for i, ps := range s.Players {
		p := g.playerLocked(ps.Name)
		if p == nil {
			p = domain.NewPlayer(ps.Name, ps.Human)
		}
		p.SetHand(ps.Hand)
		players[i] = p
	}

	g.players = players
	g.state = s.State
	g.currentIdx = s.CurrentIdx
	g.lastIdx = s.LastIdx
	g.passCount = s.PassCount
	g.openingRequired = s.OpeningRequired
	g.lastPattern = nil
	if s.LastPattern != nil {
		lp := *s.LastPattern
		g.lastPattern = &lp
	}

	g.emitLocked(Event{Kind: EventStateRestored, Next: s.CurrentName(), Remote: true})
	return nil
}

// State returns the lifecycle state.
func (g *Game) State() domain.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Players returns the roster in seat order.
func (g *Game) Players() []*domain.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*domain.Player(nil), g.players...)
}

// Player returns the named player or nil.
func (g *Game) Player(name string) *domain.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerLocked(name)
}

func (g *Game) playerLocked(name string) *domain.Player {
	if idx := g.indexOfLocked(name); idx >= 0 {
		return g.players[idx]
	}
	return nil
}

// CurrentPlayer returns the player to act, or nil with an empty roster.
func (g *Game) CurrentPlayer() *domain.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.currentIdx < 0 || g.currentIdx >= len(g.players) {
		return nil
	}
	return g.players[g.currentIdx]
}

// CurrentIndex returns the turn pointer.
func (g *Game) CurrentIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentIdx
}

// LastIndex returns the seat of the last play, -1 before the first play.
func (g *Game) LastIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastIdx
}

// LastPattern returns a copy of the incumbent pattern, nil on a free lead.
func (g *Game) LastPattern() *domain.CardPattern {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastPattern == nil {
		return nil
	}
	lp := *g.lastPattern
	lp.Cards = append([]domain.Card(nil), lp.Cards...)
	return &lp
}

// PassCount returns consecutive passes since the last play.
func (g *Game) PassCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.passCount
}

// OpeningRequired reports whether the next play must include the Diamond-Three.
func (g *Game) OpeningRequired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastIdx == -1 && g.openingRequired
}

// DriftCount returns how many cards were cloned in to apply remote deltas.
func (g *Game) DriftCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drift
}

// OtherHandSizes returns the hand sizes of everyone but name, in seat order
// starting with the seat after name.
func (g *Game) OtherHandSizes(name string) []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.indexOfLocked(name)
	if idx < 0 {
		return nil
	}
	sizes := make([]int, 0, len(g.players)-1)
	for i := 1; i < len(g.players); i++ {
		sizes = append(sizes, g.players[(idx+i)%len(g.players)].HandSize())
	}
	return sizes
}
