package internal

import "bigtwo/internal/domain"

// HandProfile summarizes a hand's structure for scoring.
type HandProfile struct {
	TotalCards int
	Singles    int
	Pairs      int
	Triples    int
	Quads      int
	Twos       int
	// FiveCardPlays counts disjoint five-card patterns found greedily.
	FiveCardPlays int
}

// ProfileHand extracts combo counts using a greedy structure pass: strongest
// five-card plays first, then rank groups from what is left.
func ProfileHand(hand []domain.Card) HandProfile {
	profile := HandProfile{TotalCards: len(hand)}
	if len(hand) == 0 {
		return profile
	}

	cards := append([]domain.Card(nil), hand...)
	domain.SortHand(cards)

	for _, c := range cards {
		if c.Rank == domain.Two {
			profile.Twos++
		}
	}

	for {
		var best *domain.CardPattern
		forEachCombination(cards, 5, func(combo []domain.Card) {
			p := domain.IdentifyPattern(combo)
			if !p.IsValid() {
				return
			}
			if best == nil {
				best = &p
				return
			}
			if ok, _ := domain.CanBeat(p, *best); ok {
				best = &p
			}
		})
		if best == nil {
			break
		}
		profile.FiveCardPlays++
		cards = domain.RemoveCards(cards, best.Cards)
	}

	rankCounts := make(map[domain.Rank]int)
	for _, c := range cards {
		rankCounts[c.Rank]++
	}
	for _, count := range rankCounts {
		switch count {
		case 4:
			profile.Quads++
		case 3:
			profile.Triples++
		case 2:
			profile.Pairs++
		case 1:
			profile.Singles++
		}
	}

	return profile
}
