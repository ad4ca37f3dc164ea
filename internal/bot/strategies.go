package bot

import (
	"sort"

	"bigtwo/internal/bot/internal"
	"bigtwo/internal/domain"
)

// SimpleStrategy plays the weakest legal move: on a free lead the lowest
// single (the Diamond-Three when held), otherwise the cheapest play that beats
// the incumbent. It never passes while it has a legal play.
type SimpleStrategy struct{}

func (SimpleStrategy) Name() string { return StrategySimple }

func (SimpleStrategy) Decide(hand []domain.Card, last *domain.CardPattern, _ []int) []domain.Card {
	if len(hand) == 0 {
		return nil
	}
	if last == nil {
		sorted := append([]domain.Card(nil), hand...)
		domain.SortHand(sorted)
		return sorted[:1]
	}

	moves := internal.GetValidMoves(hand, last)
	if len(moves) == 0 {
		return nil
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return weaker(moves[i].Pattern, moves[j].Pattern)
	})
	return moves[0].Cards
}

// SmartStrategy scores every legal move by the structure of the hand it leaves.
type SmartStrategy struct {
	Tuning internal.Tuning
}

// NewSmartStrategy returns a SmartStrategy with DefaultTuning.
func NewSmartStrategy() *SmartStrategy {
	return &SmartStrategy{Tuning: DefaultTuning}
}

func (s *SmartStrategy) Name() string { return StrategySmart }

func (s *SmartStrategy) Decide(hand []domain.Card, last *domain.CardPattern, others []int) []domain.Card {
	if len(hand) == 0 {
		return nil
	}

	validMoves := internal.GetValidMoves(hand, last)
	if len(validMoves) == 0 {
		return nil
	}

	weights := s.Tuning.ForHand(len(hand))
	threat := internal.DetectThreat(others, s.Tuning.ThreatThreshold)
	scored := internal.BuildScoredMoves(hand, validMoves, weights, threat)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Save higher cards when scores are equal.
		return weaker(scored[i].Move.Pattern, scored[j].Move.Pattern)
	})

	if last != nil && !threat {
		currentScore := internal.ScoreHand(hand, weights)
		if scored[0].Score < currentScore+s.Tuning.PassThreshold {
			return nil
		}
	}

	return scored[0].Move.Cards
}

// weaker orders patterns by type rank first, then by the comparison key.
func weaker(a, b domain.CardPattern) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return domain.CardPower(a.Highest) < domain.CardPower(b.Highest)
}
