package internal

import (
	"bigtwo/internal/domain"
)

// ValidMove represents a possible legal play.
type ValidMove struct {
	Cards   []domain.Card
	Pattern domain.CardPattern
}

// GetValidMoves returns every legal play for hand against the incumbent pattern.
// A nil last means a free lead. Holding the Diamond-Three on a free lead means
// this is the opening play, so every move must include it.
func GetValidMoves(hand []domain.Card, last *domain.CardPattern) []ValidMove {
	sorted := append([]domain.Card(nil), hand...)
	domain.SortHand(sorted)

	opening := last == nil && domain.ContainsCard(sorted, domain.DiamondThree)

	var moves []ValidMove
	consider := func(cards []domain.Card) {
		pattern := domain.IdentifyPattern(cards)
		if !pattern.IsValid() {
			return
		}
		if opening && !domain.ContainsCard(cards, domain.DiamondThree) {
			return
		}
		if last != nil {
			ok, err := domain.CanBeat(pattern, *last)
			if err != nil || !ok {
				return
			}
		}
		moves = append(moves, ValidMove{Cards: pattern.Cards, Pattern: pattern})
	}

	for _, c := range sorted {
		consider([]domain.Card{c})
	}
	for _, pair := range findAllPairs(sorted) {
		consider(pair)
	}
	forEachCombination(sorted, 5, consider)
	return moves
}

// IsLegal reports whether cards is one of the legal plays for hand.
func IsLegal(hand []domain.Card, last *domain.CardPattern, cards []domain.Card) bool {
	for _, c := range cards {
		if !domain.ContainsCard(hand, c) {
			return false
		}
	}
	pattern := domain.IdentifyPattern(cards)
	if !pattern.IsValid() {
		return false
	}
	if last == nil {
		return !domain.ContainsCard(hand, domain.DiamondThree) || domain.ContainsCard(cards, domain.DiamondThree)
	}
	ok, err := domain.CanBeat(pattern, *last)
	return err == nil && ok
}

func findAllPairs(hand []domain.Card) [][]domain.Card {
	var pairs [][]domain.Card
	for i := 0; i < len(hand)-1; i++ {
		for j := i + 1; j < len(hand) && hand[j].Rank == hand[i].Rank; j++ {
			pairs = append(pairs, []domain.Card{hand[i], hand[j]})
		}
	}
	return pairs
}

// forEachCombination calls fn with every k-card subset of cards in index order.
// The slice passed to fn is reused between calls.
func forEachCombination(cards []domain.Card, k int, fn func([]domain.Card)) {
	if k > len(cards) {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	buf := make([]domain.Card, k)
	for {
		for i, j := range idx {
			buf[i] = cards[j]
		}
		fn(buf)

		i := k - 1
		for i >= 0 && idx[i] == len(cards)-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
