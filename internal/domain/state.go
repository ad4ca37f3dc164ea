package domain

// State represents the lifecycle stage of a game.
type State string

const (
	// StateWaiting indicates the game is collecting players.
	StateWaiting State = "waiting"
	// StateDealing indicates cards are being shuffled and dealt.
	StateDealing State = "dealing"
	// StatePlaying indicates the game is actively in progress.
	StatePlaying State = "playing"
	// StateGameOver indicates a player has emptied their hand.
	StateGameOver State = "game_over"
)

// Suit orders Diamond < Club < Heart < Spade.
type Suit int32

const (
	Diamond Suit = iota
	Club
	Heart
	Spade
)

// Rank orders Three lowest through Two highest.
type Rank int32

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

// Card is an immutable playing card identity.
type Card struct {
	Suit Suit
	Rank Rank
}

// DiamondThree must be part of the opening play of every game.
var DiamondThree = Card{Suit: Diamond, Rank: Three}
