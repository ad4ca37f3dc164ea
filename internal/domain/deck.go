package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrInvalidDeal is returned when the number of hands to deal is out of range.
var ErrInvalidDeal = errors.New("invalid deal")

// Deck is a 52-card deck guarded for concurrent snapshot reads.
type Deck struct {
	mu    sync.RWMutex
	cards []Card
}

// NewDeck returns a deck in ascending (rank, suit) order.
func NewDeck() *Deck {
	return &Deck{cards: orderedCards()}
}

func orderedCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for r := Three; r <= Two; r++ {
		for s := Diamond; s <= Spade; s++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Shuffle restores all 52 cards and permutes them with rng.
// A nil rng uses a time-seeded source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cards = orderedCards()
	rng.Shuffle(len(d.cards), func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] })
}

// Deal hands out DeckSize/numPlayers cards to each player round-robin.
// The remaining DeckSize%numPlayers cards are not dealt to anyone.
// The returned hands are sorted copies.
func (d *Deck) Deal(numPlayers int) ([][]Card, error) {
	if numPlayers < 1 || numPlayers > DeckSize {
		return nil, fmt.Errorf("%w: %d players", ErrInvalidDeal, numPlayers)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	perPlayer := len(d.cards) / numPlayers
	hands := make([][]Card, numPlayers)
	for i := range hands {
		hands[i] = make([]Card, 0, perPlayer)
	}
	for i := 0; i < perPlayer*numPlayers; i++ {
		seat := i % numPlayers
		hands[seat] = append(hands[seat], d.cards[i])
	}
	for _, h := range hands {
		SortHand(h)
	}
	return hands, nil
}

// Cards returns a snapshot of the current deck order.
func (d *Deck) Cards() []Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Card(nil), d.cards...)
}

// Len returns the number of cards in the deck.
func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cards)
}
