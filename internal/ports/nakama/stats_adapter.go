package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"bigtwo/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

// walletStore is the subset of runtime.NakamaModule the stats adapter needs.
type walletStore interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error)
}

// NakamaStatsAdapter implements ports.StatsPort on top of Nakama wallets.
// Wins and games played are kept as wallet counters.
type NakamaStatsAdapter struct {
	nk walletStore
}

// NewNakamaStatsAdapter creates a new stats adapter.
func NewNakamaStatsAdapter(nk walletStore) *NakamaStatsAdapter {
	return &NakamaStatsAdapter{nk: nk}
}

// GetStats reads the counters from the user's wallet.
func (a *NakamaStatsAdapter) GetStats(ctx context.Context, userID string) (ports.PlayerStats, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return ports.PlayerStats{}, fmt.Errorf("failed to get account: %w", err)
	}

	var wallet map[string]int64
	if account.Wallet != "" {
		if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
			return ports.PlayerStats{}, fmt.Errorf("failed to unmarshal wallet: %w", err)
		}
	}

	return ports.PlayerStats{Wins: wallet[ports.StatWins], Games: wallet[ports.StatGames]}, nil
}

// RecordResults increments games for every update and wins for the winner.
func (a *NakamaStatsAdapter) RecordResults(ctx context.Context, updates []ports.ResultUpdate) error {
	for _, update := range updates {
		if update.UserID == "" {
			continue
		}

		changes := map[string]int64{ports.StatGames: 1}
		if update.Won {
			changes[ports.StatWins] = 1
		}

		if _, _, err := a.nk.WalletUpdate(ctx, update.UserID, changes, update.Metadata, true); err != nil {
			return fmt.Errorf("failed to update stats for user %s: %w", update.UserID, err)
		}
	}
	return nil
}
