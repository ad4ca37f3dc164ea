package domain

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	cards := deck.Cards()
	if len(cards) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(cards), DeckSize)
	}

	seen := make(map[Card]bool)
	for _, card := range cards {
		if seen[card] {
			t.Fatalf("duplicate card found: %v", card)
		}
		if !card.Valid() {
			t.Fatalf("invalid card: %+v", card)
		}
		seen[card] = true
	}
}

func TestDealSizes(t *testing.T) {
	deck := NewDeck()
	deck.Shuffle(rand.New(rand.NewSource(7)))

	for n := 1; n <= DeckSize; n++ {
		hands, err := deck.Deal(n)
		if err != nil {
			t.Fatalf("Deal(%d) error: %v", n, err)
		}
		if len(hands) != n {
			t.Fatalf("Deal(%d) returned %d hands", n, len(hands))
		}

		seen := make(map[Card]bool)
		total := 0
		for _, h := range hands {
			if len(h) != DeckSize/n {
				t.Fatalf("Deal(%d) hand size = %d, want %d", n, len(h), DeckSize/n)
			}
			for _, card := range h {
				if seen[card] {
					t.Fatalf("Deal(%d) dealt %v twice", n, card)
				}
				seen[card] = true
			}
			total += len(h)
		}
		if total != n*(DeckSize/n) {
			t.Fatalf("Deal(%d) total = %d, want %d", n, total, n*(DeckSize/n))
		}
	}
}

func TestDealOutOfRange(t *testing.T) {
	deck := NewDeck()
	for _, n := range []int{0, -1, 53} {
		if _, err := deck.Deal(n); !errors.Is(err, ErrInvalidDeal) {
			t.Fatalf("Deal(%d) error = %v, want ErrInvalidDeal", n, err)
		}
	}
}

func TestShuffleDeterministic(t *testing.T) {
	a, b := NewDeck(), NewDeck()
	a.Shuffle(rand.New(rand.NewSource(42)))
	b.Shuffle(rand.New(rand.NewSource(42)))

	handsA, _ := a.Deal(3)
	handsB, _ := b.Deal(3)
	if !reflect.DeepEqual(handsA, handsB) {
		t.Fatalf("same seed produced different deals")
	}

	c := NewDeck()
	c.Shuffle(rand.New(rand.NewSource(43)))
	if reflect.DeepEqual(a.Cards(), c.Cards()) {
		t.Fatalf("different seeds produced identical order")
	}
}

func TestDealRemainderIsDiscarded(t *testing.T) {
	deck := NewDeck()
	hands, err := deck.Deal(3)
	if err != nil {
		t.Fatalf("Deal error: %v", err)
	}
	// The unshuffled deck is ordered, so the last card is never dealt.
	last := Card{Rank: Two, Suit: Spade}
	for _, h := range hands {
		if ContainsCard(h, last) {
			t.Fatalf("remainder card %v was dealt", last)
		}
	}
}
