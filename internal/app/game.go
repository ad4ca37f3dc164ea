package app

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"bigtwo/internal/domain"
	"bigtwo/internal/logging"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrInvalidState    = errors.New("operation not allowed in current game state")
	ErrIllegalMove     = errors.New("illegal move")
	ErrUnknownPlayer   = errors.New("player not found")
	ErrDuplicatePlayer = errors.New("player name already taken")
	ErrTooFewPlayers   = errors.New("not enough players to start")
	ErrTooManyPlayers  = errors.New("too many players")
)

// Game is the authoritative turn state machine for one table. All mutations
// are serialized by a single lock; listeners are notified after it is released.
type Game struct {
	mu sync.Mutex

	state       domain.State
	players     []*domain.Player
	currentIdx  int
	lastIdx     int
	lastPattern *domain.CardPattern
	passCount   int
	// openingRequired is set when the Diamond-Three was dealt and must lead.
	openingRequired bool

	deck     *domain.Deck
	rng      *rand.Rand
	autoFill bool
	logger   runtime.Logger

	listeners   []Listener
	pending     []Event
	dispatching bool
	drift       int
}

// Option configures a Game.
type Option func(*Game)

// WithRand injects the shuffle source. Tests use a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l runtime.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithAutoFill makes StartGame fill empty seats with AI players. Networked
// games leave this off and rely on explicit joins.
func WithAutoFill(enabled bool) Option {
	return func(g *Game) { g.autoFill = enabled }
}

// NewGame creates a game in the Waiting state.
func NewGame(opts ...Option) *Game {
	g := &Game{
		state:   domain.StateWaiting,
		lastIdx: -1,
		deck:    domain.NewDeck(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g.logger = logging.OrNop(g.logger)
	return g
}

// AddListener registers a listener for subsequent transitions.
func (g *Game) AddListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

// AddPlayer appends a player to the roster. Only allowed while Waiting.
func (g *Game) AddPlayer(p *domain.Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != domain.StateWaiting {
		return fmt.Errorf("%w: add player while %s", ErrInvalidState, g.state)
	}
	if p == nil || p.Name == "" {
		return fmt.Errorf("%w: player needs a name", ErrIllegalMove)
	}
	if g.indexOfLocked(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Name)
	}
	if len(g.players) >= MaxPlayers {
		return fmt.Errorf("%w: table has %d seats", ErrTooManyPlayers, MaxPlayers)
	}
	g.players = append(g.players, p)
	return nil
}

// RemovePlayer drops a player from the roster. Only allowed while Waiting.
func (g *Game) RemovePlayer(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != domain.StateWaiting {
		return fmt.Errorf("%w: remove player while %s", ErrInvalidState, g.state)
	}
	idx := g.indexOfLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	return nil
}

// StartGame shuffles, deals and hands the first turn to the Diamond-Three holder.
func (g *Game) StartGame() error {
	g.mu.Lock()
	err := g.startLocked()
	g.mu.Unlock()
	g.flush()
	return err
}

func (g *Game) startLocked() error {
	if g.state != domain.StateWaiting {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, g.state)
	}
	if g.autoFill {
		g.fillWithAILocked()
	}
	if len(g.players) < MinPlayersToStartGame {
		return fmt.Errorf("%w: have %d, need %d", ErrTooFewPlayers, len(g.players), MinPlayersToStartGame)
	}
	if len(g.players) > MaxPlayers {
		return fmt.Errorf("%w: have %d", ErrTooManyPlayers, len(g.players))
	}

	g.state = domain.StateDealing
	g.deck.Shuffle(g.rng)
	hands, err := g.deck.Deal(len(g.players))
	if err != nil {
		g.state = domain.StateWaiting
		return err
	}
	for i, p := range g.players {
		p.SetHand(hands[i])
	}
	g.beginLocked()

	g.logger.Info("Game: started with %d players, %s leads", len(g.players), g.players[g.currentIdx].Name)
	g.emitLocked(Event{Kind: EventGameStarted, Next: g.players[g.currentIdx].Name})
	return nil
}

// beginLocked resets the turn pointers for a freshly dealt table.
func (g *Game) beginLocked() {
	g.currentIdx = 0
	g.openingRequired = false
	for i, p := range g.players {
		if p.HasCard(domain.DiamondThree) {
			g.currentIdx = i
			g.openingRequired = true
			break
		}
	}
	g.lastIdx = -1
	g.lastPattern = nil
	g.passCount = 0
	g.state = domain.StatePlaying
}

func (g *Game) fillWithAILocked() {
	for n := 1; len(g.players) < MaxPlayers; n++ {
		name := AIPlayerNamePrefix + strconv.Itoa(n)
		if g.indexOfLocked(name) >= 0 {
			continue
		}
		g.players = append(g.players, domain.NewPlayer(name, false))
	}
}

// Play plays cards for the current player.
func (g *Game) Play(cards []domain.Card) (domain.CardPattern, error) {
	g.mu.Lock()
	pattern, err := g.playLocked(-1, cards)
	g.mu.Unlock()
	g.flush()
	return pattern, err
}

// PlayFor plays cards for the named player, rejecting the move when it is
// not that player's turn.
func (g *Game) PlayFor(name string, cards []domain.Card) (domain.CardPattern, error) {
	g.mu.Lock()
	var pattern domain.CardPattern
	idx, err := g.turnOfLocked(name)
	if err == nil {
		pattern, err = g.playLocked(idx, cards)
	}
	g.mu.Unlock()
	g.flush()
	return pattern, err
}

func (g *Game) playLocked(idx int, cards []domain.Card) (domain.CardPattern, error) {
	if g.state != domain.StatePlaying {
		return domain.CardPattern{}, fmt.Errorf("%w: play while %s", ErrInvalidState, g.state)
	}
	if idx < 0 {
		idx = g.currentIdx
	}
	mover := g.players[idx]

	pattern := domain.IdentifyPattern(cards)
	if !pattern.IsValid() {
		return pattern, fmt.Errorf("%w: %s is not a valid pattern", ErrIllegalMove, domain.FormatCards(cards))
	}
	for _, c := range cards {
		if !mover.HasCard(c) {
			return pattern, fmt.Errorf("%w: %s does not hold %s", ErrIllegalMove, mover.Name, c)
		}
	}
	if g.lastIdx == -1 && g.openingRequired && !domain.ContainsCard(cards, domain.DiamondThree) {
		return pattern, fmt.Errorf("%w: opening play must include %s", ErrIllegalMove, domain.DiamondThree)
	}
	if g.lastPattern != nil && g.passCount < len(g.players)-1 {
		ok, err := domain.CanBeat(pattern, *g.lastPattern)
		if err != nil {
			return pattern, fmt.Errorf("%w: %v", ErrIllegalMove, err)
		}
		if !ok {
			return pattern, fmt.Errorf("%w: %s does not beat %s", ErrIllegalMove, pattern, g.lastPattern)
		}
	}

	if err := mover.Select(cards); err != nil {
		return pattern, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	played := mover.CommitSelection()

	g.lastPattern = &pattern
	g.lastIdx = idx
	g.passCount = 0

	if mover.HandSize() == 0 {
		g.state = domain.StateGameOver
		g.emitLocked(Event{Kind: EventCardsPlayed, Player: mover.Name, Cards: played, Pattern: pattern})
		g.emitLocked(Event{Kind: EventGameOver, Player: mover.Name})
		g.logger.Info("Game: %s wins", mover.Name)
		return pattern, nil
	}

	g.currentIdx = (idx + 1) % len(g.players)
	g.emitLocked(Event{
		Kind:    EventCardsPlayed,
		Player:  mover.Name,
		Cards:   played,
		Pattern: pattern,
		Next:    g.players[g.currentIdx].Name,
	})
	return pattern, nil
}

// Pass passes for the current player.
func (g *Game) Pass() error {
	g.mu.Lock()
	err := g.passLocked(-1)
	g.mu.Unlock()
	g.flush()
	return err
}

// PassFor passes for the named player, rejecting it when it is not their turn.
func (g *Game) PassFor(name string) error {
	g.mu.Lock()
	idx, err := g.turnOfLocked(name)
	if err == nil {
		err = g.passLocked(idx)
	}
	g.mu.Unlock()
	g.flush()
	return err
}

func (g *Game) passLocked(idx int) error {
	if g.state != domain.StatePlaying {
		return fmt.Errorf("%w: pass while %s", ErrInvalidState, g.state)
	}
	if idx < 0 {
		idx = g.currentIdx
	}
	if g.lastIdx == -1 {
		return fmt.Errorf("%w: cannot pass the opening play", ErrIllegalMove)
	}
	if g.lastPattern == nil || g.lastIdx == idx {
		return fmt.Errorf("%w: cannot pass on a free lead", ErrIllegalMove)
	}

	passer := g.players[idx]
	g.passCount++
	cleared := false
	if g.passCount >= len(g.players)-1 {
		g.currentIdx = g.lastIdx
		g.lastPattern = nil
		g.passCount = 0
		cleared = true
	} else {
		g.currentIdx = (idx + 1) % len(g.players)
	}

	g.emitLocked(Event{
		Kind:         EventPlayerPassed,
		Player:       passer.Name,
		Next:         g.players[g.currentIdx].Name,
		TrickCleared: cleared,
	})
	return nil
}

// Reset returns to Waiting, keeping the roster but clearing hands and turn state.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = domain.StateWaiting
	g.currentIdx = 0
	g.lastIdx = -1
	g.lastPattern = nil
	g.passCount = 0
	g.openingRequired = false
	for _, p := range g.players {
		p.ClearSelections()
		p.SetHand(nil)
	}
}

func (g *Game) turnOfLocked(name string) (int, error) {
	idx := g.indexOfLocked(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	if g.state == domain.StatePlaying && idx != g.currentIdx {
		return -1, fmt.Errorf("%w: not %s's turn", ErrIllegalMove, name)
	}
	return idx, nil
}

func (g *Game) indexOfLocked(name string) int {
	for i, p := range g.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// emitLocked queues an event for delivery once the lock is released.
func (g *Game) emitLocked(ev Event) {
	g.pending = append(g.pending, ev)
}

// flush delivers queued events outside the lock. Only one goroutine delivers at
// a time; events queued by listeners re-entering the engine are picked up by
// the delivering loop, which keeps per-game ordering intact.
func (g *Game) flush() {
	g.mu.Lock()
	if g.dispatching {
		g.mu.Unlock()
		return
	}
	g.dispatching = true
	for len(g.pending) > 0 {
		ev := g.pending[0]
		g.pending = g.pending[1:]
		listeners := append([]Listener(nil), g.listeners...)
		g.mu.Unlock()

		for _, l := range listeners {
			g.notify(l, ev)
		}

		g.mu.Lock()
	}
	g.dispatching = false
	g.mu.Unlock()
}

func (g *Game) notify(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Game: listener panicked on %s: %v", ev.Kind, r)
		}
	}()

	switch ev.Kind {
	case EventGameStarted:
		l.GameStarted(g, ev)
	case EventCardsPlayed:
		l.CardsPlayed(g, ev)
	case EventPlayerPassed:
		l.PlayerPassed(g, ev)
	case EventGameOver:
		l.GameOver(g, ev)
	case EventStateRestored:
		if rl, ok := l.(RestoreListener); ok {
			rl.StateRestored(g, ev)
		}
	}
}
