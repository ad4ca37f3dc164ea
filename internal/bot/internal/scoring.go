package internal

import "bigtwo/internal/domain"

// Weights tune move scoring.
type Weights struct {
	FiveCardWeight     float64
	PairWeight         float64
	TripleWeight       float64
	QuadWeight         float64
	SingleWeight       float64
	TotalCardWeight    float64
	UseTwoPenalty      float64
	UseBombPenalty     float64
	UseHighCardPenalty float64
	FinishBonus        float64
	// BlockerHighCardBonus rewards high singles when an opponent is nearly out.
	BlockerHighCardBonus float64
}

// Tuning defines weights per phase and the thresholds around them.
type Tuning struct {
	Early           Weights
	Late            Weights
	LateHandSize    int
	PassThreshold   float64
	ThreatThreshold int
}

// ForHand picks weights by how many cards remain.
func (t Tuning) ForHand(handSize int) Weights {
	if handSize <= t.LateHandSize {
		return t.Late
	}
	return t.Early
}

// ScoredMove holds a move with its computed score.
type ScoredMove struct {
	Move      ValidMove
	Score     float64
	Remaining []domain.Card
}

// ScoreHand evaluates how playable a hand is.
func ScoreHand(hand []domain.Card, w Weights) float64 {
	p := ProfileHand(hand)
	score := 0.0
	score += w.FiveCardWeight * float64(p.FiveCardPlays)
	score += w.PairWeight * float64(p.Pairs)
	score += w.TripleWeight * float64(p.Triples)
	score += w.QuadWeight * float64(p.Quads)
	score += w.SingleWeight * float64(p.Singles)
	score += w.TotalCardWeight * float64(p.TotalCards)
	return score
}

// BuildScoredMoves scores each move by the hand it leaves behind.
func BuildScoredMoves(hand []domain.Card, moves []ValidMove, w Weights, threat bool) []ScoredMove {
	scored := make([]ScoredMove, 0, len(moves))
	for _, move := range moves {
		remaining := domain.RemoveCards(hand, move.Cards)
		score := ScoreHand(remaining, w)

		if len(remaining) == 0 {
			score += w.FinishBonus
		}

		power := float64(domain.CardPower(move.Pattern.Highest))
		score -= w.UseHighCardPenalty * power

		if move.Pattern.Type == domain.Bomb || move.Pattern.Type == domain.FlushStraight {
			score -= w.UseBombPenalty
		}
		score -= w.UseTwoPenalty * float64(countRank(move.Cards, domain.Two))

		if threat && move.Pattern.Type == domain.Single {
			score += w.BlockerHighCardBonus * power
		}

		scored = append(scored, ScoredMove{Move: move, Score: score, Remaining: remaining})
	}
	return scored
}

// DetectThreat reports whether any opponent is at or below threshold cards.
func DetectThreat(others []int, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	for _, n := range others {
		if n > 0 && n <= threshold {
			return true
		}
	}
	return false
}

func countRank(cards []domain.Card, rank domain.Rank) int {
	count := 0
	for _, c := range cards {
		if c.Rank == rank {
			count++
		}
	}
	return count
}
