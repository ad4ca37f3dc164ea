package nakama

import "bigtwo/internal/protocol"

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby.
	RpcQuickMatch = "quick_match"

	// RpcPlayerStats returns the caller's win tally.
	RpcPlayerStats = "player_stats"

	// MatchNameBigTwo is the authoritative match handler name registered with Nakama.
	MatchNameBigTwo = "bigtwo_match"

	// GameLabel identifies Big Two matches in match labels.
	GameLabel = "bigtwo"
)

// Match label keys.
const (
	MatchLabelKeyGame      = "game"
	MatchLabelKeyOpenSeats = "open"
	MatchLabelKeyState     = "state"
)

// Op codes equal the protocol ordinals; match data is the bare payload.
const (
	OpJoinGame      = int64(protocol.JoinGame)
	OpGameStart     = int64(protocol.GameStart)
	OpDealCards     = int64(protocol.DealCards)
	OpPlayRequest   = int64(protocol.PlayRequest)
	OpPlayBroadcast = int64(protocol.PlayBroadcast)
	OpPass          = int64(protocol.Pass)
	OpPlayerLeft    = int64(protocol.PlayerLeft)
	OpGameOver      = int64(protocol.GameOver)
	OpChatMessage   = int64(protocol.ChatMessage)
	OpStateSync     = int64(protocol.StateSync)
)

// Environment keys read from the Nakama runtime config.
const (
	envBotsEnabled   = "bigtwo_bots_enabled"
	envBotDelayTicks = "bigtwo_bot_delay_ticks"
	envBotStrategy   = "bigtwo_bot_strategy"
)

const (
	matchTickRate        = 2
	defaultBotDelayTicks = 2
)
