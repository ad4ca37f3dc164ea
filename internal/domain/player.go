package domain

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSelectionOutOfRange = errors.New("selection index out of range")
	ErrCardNotInHand       = errors.New("card not in hand")
)

// Player holds a seat's hand and selection markers. All methods are safe
// for concurrent use.
type Player struct {
	Name  string
	Human bool

	mu       sync.Mutex
	hand     []Card
	selected []bool
}

// NewPlayer creates a player with an empty hand.
func NewPlayer(name string, human bool) *Player {
	return &Player{Name: name, Human: human}
}

// SetHand replaces the hand with a sorted copy and clears selections.
func (p *Player) SetHand(cards []Card) {
	hand := append([]Card(nil), cards...)
	SortHand(hand)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.hand = hand
	p.selected = make([]bool, len(hand))
}

// Hand returns a snapshot of the hand.
func (p *Player) Hand() []Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Card(nil), p.hand...)
}

// HandSize returns the number of cards held.
func (p *Player) HandSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hand)
}

// HasCard reports whether the card is in the hand.
func (p *Player) HasCard(c Card) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ContainsCard(p.hand, c)
}

// ToggleSelection flips the selected marker at index.
func (p *Player) ToggleSelection(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.hand) {
		return fmt.Errorf("%w: %d of %d", ErrSelectionOutOfRange, index, len(p.hand))
	}
	p.selected[index] = !p.selected[index]
	return nil
}

// ClearSelections unselects every card.
func (p *Player) ClearSelections() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.selected {
		p.selected[i] = false
	}
}

// Select replaces the current selection with exactly the given cards.
// Nothing is selected if any card is missing from the hand.
func (p *Player) Select(cards []Card) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make([]bool, len(p.hand))
	for _, c := range cards {
		idx := -1
		for i, h := range p.hand {
			if h == c && !next[i] {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCardNotInHand, c)
		}
		next[idx] = true
	}
	p.selected = next
	return nil
}

// SelectedCards returns the selected cards in hand order.
func (p *Player) SelectedCards() []Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Card
	for i, sel := range p.selected {
		if sel {
			out = append(out, p.hand[i])
		}
	}
	return out
}

// CommitSelection removes the selected cards from the hand and returns them.
// It is the only way cards leave a hand.
func (p *Player) CommitSelection() []Card {
	p.mu.Lock()
	defer p.mu.Unlock()

	var played []Card
	kept := make([]Card, 0, len(p.hand))
	for i, c := range p.hand {
		if p.selected[i] {
			played = append(played, c)
			continue
		}
		kept = append(kept, c)
	}
	p.hand = kept
	p.selected = make([]bool, len(kept))
	return played
}

// AddCard inserts a card keeping the hand sorted and clears selections.
func (p *Player) AddCard(c Card) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hand = append(p.hand, c)
	SortHand(p.hand)
	p.selected = make([]bool, len(p.hand))
}
