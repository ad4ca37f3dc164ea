package domain

import (
	"errors"
	"fmt"
	"sort"
)

// PatternType represents the type of card combination.
type PatternType int

const (
	Invalid PatternType = iota
	Single
	Pair
	Straight
	Flush
	ThreeWithPair
	Bomb          // Four of a kind plus one card
	FlushStraight // Five consecutive ranks of one suit
)

var patternNames = map[PatternType]string{
	Invalid:       "invalid",
	Single:        "single",
	Pair:          "pair",
	Straight:      "straight",
	Flush:         "flush",
	ThreeWithPair: "three_with_pair",
	Bomb:          "bomb",
	FlushStraight: "flush_straight",
}

func (t PatternType) String() string {
	if name, ok := patternNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PatternType(%d)", int(t))
}

// ErrInvalidComparison is returned when either side of a comparison is not a valid pattern.
var ErrInvalidComparison = errors.New("invalid pattern comparison")

// CardPattern is a classified play. Highest is the comparison key.
type CardPattern struct {
	Type    PatternType
	Cards   []Card // sorted ascending
	Highest Card
}

// IsValid reports whether the pattern was recognised by the classifier.
func (p CardPattern) IsValid() bool { return p.Type != Invalid }

func (p CardPattern) String() string {
	if !p.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%s[%s]", p.Type, FormatCards(p.Cards))
}

// CanBeat reports whether p beats the incumbent pattern.
func (p CardPattern) CanBeat(incumbent CardPattern) (bool, error) {
	return CanBeat(p, incumbent)
}

// IsValidSet checks if the cards form a legal Big Two combination.
func IsValidSet(cards []Card) bool {
	return IdentifyPattern(cards).Type != Invalid
}

// IdentifyPattern classifies 1, 2 or 5 cards. Any other count, duplicate or
// unrecognised shape yields an Invalid pattern. The input slice is not modified.
func IdentifyPattern(cards []Card) CardPattern {
	if !distinctValidCards(cards) {
		return CardPattern{Type: Invalid}
	}

	sorted := append([]Card(nil), cards...)
	SortHand(sorted)
	n := len(sorted)

	switch n {
	case 1:
		return CardPattern{Type: Single, Cards: sorted, Highest: sorted[0]}
	case 2:
		if sorted[0].Rank != sorted[1].Rank {
			return CardPattern{Type: Invalid}
		}
		return CardPattern{Type: Pair, Cards: sorted, Highest: sorted[1]}
	case 5:
		return identifyFive(sorted)
	}
	return CardPattern{Type: Invalid}
}

func identifyFive(sorted []Card) CardPattern {
	counts := make(map[Rank]int, 5)
	for _, c := range sorted {
		counts[c.Rank]++
	}

	if len(counts) == 2 {
		var group Rank
		var size int
		for r, n := range counts {
			if n >= 3 {
				group, size = r, n
			}
		}
		// Highest is the top-suit card of the triple or quad.
		highest := highestOfRank(sorted, group)
		switch size {
		case 3:
			return CardPattern{Type: ThreeWithPair, Cards: sorted, Highest: highest}
		case 4:
			return CardPattern{Type: Bomb, Cards: sorted, Highest: highest}
		}
		return CardPattern{Type: Invalid}
	}

	if len(counts) != 5 {
		return CardPattern{Type: Invalid}
	}

	highest := sorted[4]
	straight := isStraight(sorted)
	flush := allSameSuit(sorted)
	switch {
	case straight && flush:
		return CardPattern{Type: FlushStraight, Cards: sorted, Highest: highest}
	case straight:
		return CardPattern{Type: Straight, Cards: sorted, Highest: highest}
	case flush:
		return CardPattern{Type: Flush, Cards: sorted, Highest: highest}
	}
	return CardPattern{Type: Invalid}
}

// CanBeat determines whether mover beats incumbent.
// The relation is not total: incomparable types return false without error.
func CanBeat(mover, incumbent CardPattern) (bool, error) {
	if mover.Type == Invalid || incumbent.Type == Invalid {
		return false, ErrInvalidComparison
	}

	switch mover.Type {
	case FlushStraight:
		if incumbent.Type == FlushStraight {
			return suitThenRank(mover.Highest, incumbent.Highest), nil
		}
		return true, nil

	case Bomb:
		switch incumbent.Type {
		case FlushStraight:
			return false, nil
		case Bomb:
			return mover.Highest.Rank > incumbent.Highest.Rank, nil
		}
		return true, nil

	case ThreeWithPair:
		switch incumbent.Type {
		case Straight, Flush:
			return true, nil
		case ThreeWithPair:
			return mover.Highest.Rank > incumbent.Highest.Rank, nil
		}
		return false, nil

	case Flush:
		switch incumbent.Type {
		case Straight:
			return true, nil
		case Flush:
			return suitThenRank(mover.Highest, incumbent.Highest), nil
		}
		return false, nil

	case Single, Pair, Straight:
		if incumbent.Type == mover.Type {
			return incumbent.Highest.Less(mover.Highest), nil
		}
	}
	return false, nil
}

func suitThenRank(a, b Card) bool {
	if a.Suit != b.Suit {
		return a.Suit > b.Suit
	}
	return a.Rank > b.Rank
}

func highestOfRank(cards []Card, r Rank) Card {
	var best Card
	found := false
	for _, c := range cards {
		if c.Rank == r && (!found || best.Less(c)) {
			best, found = c, true
		}
	}
	return best
}

func distinctValidCards(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

func allSameSuit(cards []Card) bool {
	s := cards[0].Suit
	for _, c := range cards {
		if c.Suit != s {
			return false
		}
	}
	return true
}

// isStraight reports consecutive ranks from Three up to Two with no wraparound.
func isStraight(cards []Card) bool {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}
