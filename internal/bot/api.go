package bot

import (
	"bigtwo/internal/domain"
)

// Move represents the decision made by the AI.
type Move struct {
	Pass  bool
	Cards []domain.Card
}

// Strategy decides a play for one seat. Decide returns the cards to play, or
// an empty selection to pass. last is nil on a free lead; others lists the
// opponents' hand sizes in seat order starting after the deciding player.
type Strategy interface {
	Name() string
	Decide(hand []domain.Card, last *domain.CardPattern, others []int) []domain.Card
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(hand []domain.Card, last *domain.CardPattern, others []int) []domain.Card

func (f StrategyFunc) Name() string { return "func" }

func (f StrategyFunc) Decide(hand []domain.Card, last *domain.CardPattern, others []int) []domain.Card {
	return f(hand, last, others)
}
