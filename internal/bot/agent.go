package bot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/logging"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Agent drives every non-human seat of a Game. Register it with
// Game.AddListener; it acts whenever the turn passes to an AI player.
type Agent struct {
	Strategy Strategy
	// Delay postpones each AI move. Zero plays synchronously inside the
	// listener callback.
	Delay time.Duration

	logger runtime.Logger

	mu      sync.Mutex
	stopped bool
	timers  map[*time.Timer]struct{}
}

// NewAgent creates an agent. A nil strategy uses SmartStrategy.
func NewAgent(strategy Strategy, delay time.Duration, logger runtime.Logger) *Agent {
	if strategy == nil {
		strategy = NewSmartStrategy()
	}
	return &Agent{
		Strategy: strategy,
		Delay:    delay,
		logger:   logging.OrNop(logger),
		timers:   make(map[*time.Timer]struct{}),
	}
}

// Play asks the strategy for name's move without applying it.
func (a *Agent) Play(g *app.Game, name string) (Move, error) {
	player := g.Player(name)
	if player == nil {
		return Move{Pass: true}, fmt.Errorf("%w: %s", app.ErrUnknownPlayer, name)
	}

	hand := player.Hand()
	last := g.LastPattern()
	cards := a.Strategy.Decide(hand, last, g.OtherHandSizes(name))
	if len(cards) == 0 {
		if last == nil {
			// A free lead cannot be passed.
			return Move{Cards: SimpleStrategy{}.Decide(hand, nil, nil)}, nil
		}
		return Move{Pass: true}, nil
	}
	return Move{Cards: cards}, nil
}

// Act applies a move for name if it is still that AI player's turn. Rejected
// strategy moves are retried once with SimpleStrategy.
func (a *Agent) Act(g *app.Game, name string) error {
	current := g.CurrentPlayer()
	if g.State() != domain.StatePlaying || current == nil || current.Human || current.Name != name {
		return nil
	}

	move, err := a.Play(g, name)
	if err != nil {
		return err
	}
	if err = apply(g, name, move); err == nil {
		return nil
	}
	if !errors.Is(err, app.ErrIllegalMove) {
		return err
	}

	a.logger.Warn("Agent: %s strategy produced illegal move for %s: %v", a.Strategy.Name(), name, err)
	fallback := Move{Cards: SimpleStrategy{}.Decide(current.Hand(), g.LastPattern(), nil)}
	if len(fallback.Cards) == 0 {
		fallback.Pass = true
	}
	return apply(g, name, fallback)
}

func apply(g *app.Game, name string, move Move) error {
	if move.Pass {
		return g.PassFor(name)
	}
	_, err := g.PlayFor(name, move.Cards)
	return err
}

// Stop cancels pending delayed moves. Further events are ignored.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for t := range a.timers {
		t.Stop()
	}
	a.timers = make(map[*time.Timer]struct{})
}

func (a *Agent) GameStarted(g *app.Game, ev app.Event)   { a.schedule(g, ev.Next) }
func (a *Agent) CardsPlayed(g *app.Game, ev app.Event)   { a.schedule(g, ev.Next) }
func (a *Agent) PlayerPassed(g *app.Game, ev app.Event)  { a.schedule(g, ev.Next) }
func (a *Agent) StateRestored(g *app.Game, ev app.Event) { a.schedule(g, ev.Next) }
func (a *Agent) GameOver(*app.Game, app.Event)           {}

func (a *Agent) schedule(g *app.Game, name string) {
	if name == "" {
		return
	}
	if p := g.Player(name); p == nil || p.Human {
		return
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	if a.Delay <= 0 {
		a.mu.Unlock()
		// Synchronous moves re-enter the Game from its dispatch loop, which
		// queues the follow-up events instead of recursing.
		a.run(g, name)
		return
	}

	var t *time.Timer
	t = time.AfterFunc(a.Delay, func() {
		a.mu.Lock()
		_, live := a.timers[t]
		delete(a.timers, t)
		a.mu.Unlock()
		if live {
			a.run(g, name)
		}
	})
	a.timers[t] = struct{}{}
	a.mu.Unlock()
}

func (a *Agent) run(g *app.Game, name string) {
	if err := a.Act(g, name); err != nil {
		a.logger.Error("Agent: move for %s failed: %v", name, err)
	}
}
