package app

// MinPlayersToStartGame defines the minimum number of seats required to start a game.
const MinPlayersToStartGame = 2

// MaxPlayers is the largest roster a game accepts.
const MaxPlayers = 4

// AIPlayerNamePrefix names seats added by auto-fill ("AI 1", "AI 2", ...).
const AIPlayerNamePrefix = "AI "
