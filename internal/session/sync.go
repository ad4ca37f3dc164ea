package session

import (
	"fmt"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/protocol"
)

// SyncFor converts an authoritative snapshot into the STATE_SYNC payload
// addressed to self.
func SyncFor(s app.Snapshot, self string) protocol.Sync {
	out := protocol.Sync{
		Current:   s.CurrentName(),
		Last:      s.LastName(),
		PassCount: s.PassCount,
		Deal:      protocol.Deal{Hands: seatHands(s), Self: self},
	}
	if s.LastPattern != nil {
		out.Lead = append([]domain.Card(nil), s.LastPattern.Cards...)
	}
	return out
}

// fromSync rebuilds a replica snapshot. The wire form carries no lifecycle
// state or opening flag, so both are derived from the hands.
func fromSync(s protocol.Sync) (app.Snapshot, error) {
	snap := app.Snapshot{
		State:     domain.StatePlaying,
		Players:   make([]app.PlayerSnapshot, len(s.Deal.Hands)),
		LastIdx:   -1,
		PassCount: s.PassCount,
	}

	current := -1
	holdsDiamondThree := false
	for i, h := range s.Deal.Hands {
		snap.Players[i] = app.PlayerSnapshot{Name: h.Name, Human: true, Hand: h.Cards}
		if h.Name == s.Current {
			current = i
		}
		if h.Name == s.Last {
			snap.LastIdx = i
		}
		if len(h.Cards) == 0 {
			snap.State = domain.StateGameOver
		}
		if domain.ContainsCard(h.Cards, domain.DiamondThree) {
			holdsDiamondThree = true
		}
	}
	if current < 0 {
		return app.Snapshot{}, fmt.Errorf("%w: current player %q not seated", protocol.ErrDecode, s.Current)
	}
	if s.Last != "" && snap.LastIdx < 0 {
		return app.Snapshot{}, fmt.Errorf("%w: last player %q not seated", protocol.ErrDecode, s.Last)
	}
	snap.CurrentIdx = current
	snap.OpeningRequired = s.Last == "" && holdsDiamondThree

	if len(s.Lead) > 0 {
		lead := domain.IdentifyPattern(s.Lead)
		if !lead.IsValid() {
			return app.Snapshot{}, fmt.Errorf("%w: lead %s is not a pattern", protocol.ErrDecode, domain.FormatCards(s.Lead))
		}
		snap.LastPattern = &lead
	}
	return snap, nil
}
