package app

import "bigtwo/internal/domain"

// EventKind identifies emitted game events.
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventCardsPlayed   EventKind = "cards_played"
	EventPlayerPassed  EventKind = "player_passed"
	EventGameOver      EventKind = "game_over"
	EventStateRestored EventKind = "state_restored"
)

// Event describes one engine transition.
type Event struct {
	Kind    EventKind
	Player  string // mover, passer or winner
	Cards   []domain.Card
	Pattern domain.CardPattern
	// Next is the player to act after the transition; empty once the game is over.
	Next string
	// TrickCleared is set when a pass handed the free lead back to the last author.
	TrickCleared bool
	// Remote marks transitions applied from a peer's broadcast rather than decided locally.
	Remote bool
}

// Listener observes engine transitions. Callbacks run after the engine lock
// is released, in the order the transitions happened, so they may call back
// into the Game.
type Listener interface {
	GameStarted(g *Game, ev Event)
	CardsPlayed(g *Game, ev Event)
	PlayerPassed(g *Game, ev Event)
	GameOver(g *Game, ev Event)
}

// RestoreListener is implemented by listeners that want to know about Restore.
type RestoreListener interface {
	StateRestored(g *Game, ev Event)
}

// ListenerFuncs adapts optional callbacks to Listener.
type ListenerFuncs struct {
	OnGameStarted   func(g *Game, ev Event)
	OnCardsPlayed   func(g *Game, ev Event)
	OnPlayerPassed  func(g *Game, ev Event)
	OnGameOver      func(g *Game, ev Event)
	OnStateRestored func(g *Game, ev Event)
}

func (f ListenerFuncs) GameStarted(g *Game, ev Event) {
	if f.OnGameStarted != nil {
		f.OnGameStarted(g, ev)
	}
}

func (f ListenerFuncs) CardsPlayed(g *Game, ev Event) {
	if f.OnCardsPlayed != nil {
		f.OnCardsPlayed(g, ev)
	}
}

func (f ListenerFuncs) PlayerPassed(g *Game, ev Event) {
	if f.OnPlayerPassed != nil {
		f.OnPlayerPassed(g, ev)
	}
}

func (f ListenerFuncs) GameOver(g *Game, ev Event) {
	if f.OnGameOver != nil {
		f.OnGameOver(g, ev)
	}
}

func (f ListenerFuncs) StateRestored(g *Game, ev Event) {
	if f.OnStateRestored != nil {
		f.OnStateRestored(g, ev)
	}
}
