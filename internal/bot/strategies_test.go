package bot

import (
	"testing"

	"bigtwo/internal/bot/internal"
	"bigtwo/internal/domain"
)

func card(r domain.Rank, s domain.Suit) domain.Card {
	return domain.Card{Rank: r, Suit: s}
}

func pattern(cards ...domain.Card) *domain.CardPattern {
	p := domain.IdentifyPattern(cards)
	return &p
}

func TestSimpleStrategy_LeadsDiamondThree(t *testing.T) {
	hand := []domain.Card{card(domain.King, domain.Spade), domain.DiamondThree, card(domain.Four, domain.Club)}
	got := SimpleStrategy{}.Decide(hand, nil, []int{13, 13, 13})
	if len(got) != 1 || got[0] != domain.DiamondThree {
		t.Fatalf("expected [3♦], got %v", got)
	}
}

func TestSimpleStrategy_WeakestBeatingMove(t *testing.T) {
	hand := []domain.Card{
		card(domain.Six, domain.Club),
		card(domain.Nine, domain.Heart),
		card(domain.Two, domain.Spade),
	}
	got := SimpleStrategy{}.Decide(hand, pattern(card(domain.Five, domain.Spade)), nil)
	if len(got) != 1 || got[0] != card(domain.Six, domain.Club) {
		t.Fatalf("expected 6♣, got %v", got)
	}
}

func TestSimpleStrategy_PassesWhenNothingBeats(t *testing.T) {
	hand := []domain.Card{card(domain.Four, domain.Club)}
	if got := (SimpleStrategy{}).Decide(hand, pattern(card(domain.Two, domain.Spade)), nil); len(got) != 0 {
		t.Fatalf("expected pass, got %v", got)
	}
}

func TestSmartStrategy_ReturnsLegalMoves(t *testing.T) {
	deck := domain.NewDeck()
	hands, err := deck.Deal(4)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSmartStrategy()

	for i, hand := range hands {
		var last *domain.CardPattern
		if i > 0 {
			last = pattern(card(domain.Seven, domain.Diamond))
		}
		got := s.Decide(hand, last, []int{13, 13, 13})
		if len(got) == 0 {
			if last == nil {
				t.Fatalf("hand %d passed on a free lead", i)
			}
			continue
		}
		if !internal.IsLegal(hand, last, got) {
			t.Fatalf("hand %d: illegal move %v", i, got)
		}
	}
}

func TestSmartStrategy_FinishesWhenPossible(t *testing.T) {
	hand := []domain.Card{card(domain.Nine, domain.Club), card(domain.Nine, domain.Spade)}
	got := NewSmartStrategy().Decide(hand, pattern(card(domain.Eight, domain.Diamond), card(domain.Eight, domain.Heart)), []int{5})
	if len(got) != 2 {
		t.Fatalf("expected the finishing pair, got %v", got)
	}
}

func TestSmartStrategy_KeepsFiveCardPlayIntact(t *testing.T) {
	// Leading a low single should be preferred over breaking the straight.
	hand := []domain.Card{
		card(domain.Five, domain.Diamond), card(domain.Six, domain.Club), card(domain.Seven, domain.Heart),
		card(domain.Eight, domain.Spade), card(domain.Nine, domain.Diamond),
		card(domain.Jack, domain.Club), card(domain.Jack, domain.Heart),
		card(domain.Four, domain.Spade),
	}
	got := NewSmartStrategy().Decide(hand, nil, []int{13, 13, 13})
	for _, c := range got {
		if c.Rank == domain.Jack {
			return
		}
	}
	if len(got) == 1 && got[0].Rank >= domain.Five && got[0].Rank <= domain.Nine {
		t.Fatalf("broke the straight with %v", got)
	}
}

func TestNewStrategy(t *testing.T) {
	for _, name := range []string{"", "smart", "SIMPLE"} {
		if _, err := NewStrategy(name, ""); err != nil {
			t.Errorf("NewStrategy(%q): %v", name, err)
		}
	}
	if _, err := NewStrategy("lua", ""); err == nil {
		t.Error("lua without a script should fail")
	}
	if _, err := NewStrategy("god", ""); err == nil {
		t.Error("unknown strategy should fail")
	}
}
