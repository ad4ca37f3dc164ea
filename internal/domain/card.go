package domain

import (
	"fmt"
	"sort"
	"strings"
)

var (
	suitSymbols = [NumSuits]string{"♦", "♣", "♥", "♠"}
	suitLetters = [NumSuits]string{"D", "C", "H", "S"}
	rankNames   = [NumRanks]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}
)

// Valid reports whether the suit is one of the four known suits.
func (s Suit) Valid() bool { return s >= Diamond && s <= Spade }

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", int32(s))
	}
	return suitSymbols[s]
}

// Valid reports whether the rank is between Three and Two.
func (r Rank) Valid() bool { return r >= Three && r <= Two }

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", int32(r))
	}
	return rankNames[r]
}

// Valid reports whether both suit and rank are in range.
func (c Card) Valid() bool { return c.Suit.Valid() && c.Rank.Valid() }

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Code returns the short ASCII form used by consoles, e.g. "10S".
func (c Card) Code() string {
	if !c.Valid() {
		return c.String()
	}
	return rankNames[c.Rank] + suitLetters[c.Suit]
}

// Less orders cards by rank, then suit.
func (c Card) Less(o Card) bool {
	return CardPower(c) < CardPower(o)
}

// CardPower maps a card to a unique ordinal in (rank, suit) order.
func CardPower(c Card) int32 {
	return int32(c.Rank)*NumSuits + int32(c.Suit)
}

// SortHand orders a hand by ascending power.
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return CardPower(cards[i]) < CardPower(cards[j])
	})
}

// MaxCard returns the highest card by rank then suit. The slice must not be empty.
func MaxCard(cards []Card) Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if best.Less(c) {
			best = c
		}
	}
	return best
}

// ContainsCard reports whether the card appears in the list.
func ContainsCard(cards []Card, target Card) bool {
	for _, c := range cards {
		if c == target {
			return true
		}
	}
	return false
}

// RemoveCards removes the specified cards from a hand and returns the updated hand.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}

// FormatCards renders cards in their display form separated by spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// ParseCard parses the console short form: a rank ("3".."10", "J", "Q", "K", "A", "2")
// followed by a suit letter (D, C, H, S). Matching is case-insensitive.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Card{}, fmt.Errorf("parse card %q: too short", s)
	}
	rankPart, suitPart := s[:len(s)-1], s[len(s)-1:]

	suit := Suit(-1)
	for i, l := range suitLetters {
		if l == suitPart {
			suit = Suit(i)
			break
		}
	}
	if !suit.Valid() {
		return Card{}, fmt.Errorf("parse card %q: unknown suit %q", s, suitPart)
	}

	rank := Rank(-1)
	for i, n := range rankNames {
		if n == rankPart {
			rank = Rank(i)
			break
		}
	}
	if !rank.Valid() {
		return Card{}, fmt.Errorf("parse card %q: unknown rank %q", s, rankPart)
	}

	return Card{Suit: suit, Rank: rank}, nil
}
