package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"bigtwo/internal/domain"
)

// EncodeCard writes a card token "suit.rank".
func EncodeCard(c domain.Card) string {
	return strconv.Itoa(int(c.Suit)) + "." + strconv.Itoa(int(c.Rank))
}

// EncodeCards writes each token followed by ';'.
func EncodeCards(cards []domain.Card) string {
	var sb strings.Builder
	for _, c := range cards {
		sb.WriteString(EncodeCard(c))
		sb.WriteByte(';')
	}
	return sb.String()
}

// DecodeCard parses a "suit.rank" token.
func DecodeCard(token string) (domain.Card, error) {
	s, r, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return domain.Card{}, fmt.Errorf("%w: card token %q", ErrDecode, token)
	}
	suit, err := strconv.Atoi(s)
	if err != nil {
		return domain.Card{}, fmt.Errorf("%w: card suit %q", ErrDecode, s)
	}
	rank, err := strconv.Atoi(r)
	if err != nil {
		return domain.Card{}, fmt.Errorf("%w: card rank %q", ErrDecode, r)
	}
	c := domain.Card{Suit: domain.Suit(suit), Rank: domain.Rank(rank)}
	if !c.Valid() {
		return domain.Card{}, fmt.Errorf("%w: card %q out of range", ErrDecode, token)
	}
	return c, nil
}

// DecodeCards parses a ';'-separated token list. Empty tokens are skipped, so
// the trailing ';' is optional.
func DecodeCards(s string) ([]domain.Card, error) {
	var cards []domain.Card
	for _, tok := range strings.Split(s, ";") {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		c, err := DecodeCard(tok)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
