package bot

import botinternal "bigtwo/internal/bot/internal"

const finishBonus = 1000.0

// DefaultTuning balances structure preservation and hand reduction. Late
// weights kick in once the hand is small and favour shedding cards.
var DefaultTuning = botinternal.Tuning{
	Early: botinternal.Weights{
		FiveCardWeight:     3.0,
		PairWeight:         1.0,
		TripleWeight:       1.2,
		QuadWeight:         1.5,
		SingleWeight:       -1.0,
		TotalCardWeight:    -0.5,
		UseTwoPenalty:      6.0,
		UseBombPenalty:     8.0,
		UseHighCardPenalty: 0.1,
		FinishBonus:        finishBonus,
	},
	Late: botinternal.Weights{
		FiveCardWeight:       2.0,
		PairWeight:           0.6,
		TripleWeight:         0.8,
		QuadWeight:           1.0,
		SingleWeight:         -1.5,
		TotalCardWeight:      -1.5,
		UseTwoPenalty:        1.0,
		UseBombPenalty:       2.0,
		UseHighCardPenalty:   0.05,
		FinishBonus:          finishBonus,
		BlockerHighCardBonus: 0.4,
	},
	LateHandSize:    5,
	PassThreshold:   -10.0,
	ThreatThreshold: 2,
}
