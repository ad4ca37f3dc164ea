package domain

const (
	// DeckSize is the number of cards in a full deck without jokers.
	DeckSize = 52

	// NumSuits and NumRanks describe the deck shape.
	NumSuits = 4
	NumRanks = 13

	// MaxPlayers is the number of seats at a table.
	MaxPlayers = 4
)
