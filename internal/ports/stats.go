package ports

import "context"

// Wallet keys used to store per-player results.
const (
	StatWins  = "wins"
	StatGames = "games"
)

// ResultUpdate records the outcome of one finished game for one player.
type ResultUpdate struct {
	UserID   string
	Won      bool
	Metadata map[string]interface{}
}

// PlayerStats is the running tally for a player.
type PlayerStats struct {
	Wins  int64 `json:"wins"`
	Games int64 `json:"games"`
}

// StatsPort persists game results outside the match.
type StatsPort interface {
	// GetStats returns the tally for a user. Unknown users have zero stats.
	GetStats(ctx context.Context, userID string) (PlayerStats, error)

	// RecordResults applies the outcome of a finished game.
	RecordResults(ctx context.Context, updates []ResultUpdate) error
}
