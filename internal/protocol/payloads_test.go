package protocol

import (
	"math/rand"
	"testing"

	"bigtwo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardTokens(t *testing.T) {
	assert.Equal(t, "0.0", EncodeCard(domain.DiamondThree))
	assert.Equal(t, "3.12;2.11;", EncodeCards([]domain.Card{
		{Suit: domain.Spade, Rank: domain.Two},
		{Suit: domain.Heart, Rank: domain.Ace},
	}))

	cards, err := DecodeCards("0.0;3.12")
	require.NoError(t, err)
	assert.Equal(t, []domain.Card{domain.DiamondThree, {Suit: domain.Spade, Rank: domain.Two}}, cards)

	for _, bad := range []string{"4.0;", "0.13;", "x.1;", "01;"} {
		_, err := DecodeCards(bad)
		assert.ErrorIs(t, err, ErrDecode, "tokens %q", bad)
	}
}

func TestDealRoundTripThreePlayers(t *testing.T) {
	deck := domain.NewDeck()
	deck.Shuffle(rand.New(rand.NewSource(11)))
	hands, err := deck.Deal(3)
	require.NoError(t, err)

	names := []string{"alice", "bob", "carol"}
	d := Deal{Self: "bob"}
	for i, h := range hands {
		require.Len(t, h, 17)
		d.Hands = append(d.Hands, Hand{Name: names[i], Cards: h})
	}

	payload, err := EncodeDeal(d)
	require.NoError(t, err)
	assert.Contains(t, payload, ";;self=bob")

	b, err := Encode(Message{Type: DealCards, Payload: payload})
	require.NoError(t, err)
	m, err := Decode(string(b[:len(b)-1]))
	require.NoError(t, err)

	got, err := DecodeDeal(m.Payload)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDealWithoutSelf(t *testing.T) {
	got, err := DecodeDeal("2:a,1,0.0;|b,1,1.0;")
	require.NoError(t, err)
	assert.Empty(t, got.Self)
	require.Len(t, got.Hands, 2)
	assert.Equal(t, "b", got.Hands[1].Name)
}

func TestDecodeDealMalformed(t *testing.T) {
	tests := map[string]string{
		"no count":       "a,1,0.0;",
		"bad count":      "x:a,1,0.0;",
		"count mismatch": "3:a,1,0.0;|b,1,1.0;",
		"size mismatch":  "2:a,2,0.0;|b,1,1.0;",
		"missing fields": "2:a,1|b,1,1.0;",
		"duplicate card": "2:a,1,0.0;|b,1,0.0;",
		"bad card":       "2:a,1,9.9;|b,1,1.0;",
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDeal(payload)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestEncodeDealRejectsReservedName(t *testing.T) {
	_, err := EncodeDeal(Deal{Hands: []Hand{{Name: "a:b"}}})
	assert.ErrorIs(t, err, ErrEncode)
}

func TestPlayPayloads(t *testing.T) {
	broadcast := EncodePlay(Play{Player: "alice", Cards: []domain.Card{domain.DiamondThree}, Next: "bob"})
	assert.Equal(t, "alice:0.0;|next=bob", broadcast)

	got, err := DecodePlay(broadcast)
	require.NoError(t, err)
	assert.Equal(t, Play{Player: "alice", Cards: []domain.Card{domain.DiamondThree}, Next: "bob"}, got)

	request := EncodePlay(Play{Player: "bob", Cards: []domain.Card{{Suit: domain.Club, Rank: domain.Four}}})
	assert.Equal(t, "bob:1.1;", request)
	got, err = DecodePlay(request)
	require.NoError(t, err)
	assert.Empty(t, got.Next)

	for _, bad := range []string{"", "alice", ":0.0;", "alice:", "alice:7.7;"} {
		_, err := DecodePlay(bad)
		assert.ErrorIs(t, err, ErrDecode, "payload %q", bad)
	}
}

func TestPassPayloads(t *testing.T) {
	assert.Equal(t, "bob", EncodePass(PassMove{Player: "bob"}))
	assert.Equal(t, "bob|next=carol", EncodePass(PassMove{Player: "bob", Next: "carol"}))

	got, err := DecodePass("bob|next=carol")
	require.NoError(t, err)
	assert.Equal(t, PassMove{Player: "bob", Next: "carol"}, got)

	_, err = DecodePass("")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSyncRoundTrip(t *testing.T) {
	s := Sync{
		Current:   "bob",
		Last:      "alice",
		PassCount: 1,
		Lead:      []domain.Card{{Suit: domain.Heart, Rank: domain.Nine}},
		Deal: Deal{
			Hands: []Hand{
				{Name: "alice", Cards: []domain.Card{domain.DiamondThree}},
				{Name: "bob", Cards: []domain.Card{{Suit: domain.Spade, Rank: domain.Two}}},
				{Name: "carol", Cards: nil},
			},
			Self: "bob",
		},
	}
	payload, err := EncodeSync(s)
	require.NoError(t, err)
	assert.Equal(t, "bob,alice,1,2.6;#3:alice,1,0.0;|bob,1,3.12;|carol,0,;self=bob", payload)

	got, err := DecodeSync(payload)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSyncFreeLead(t *testing.T) {
	got, err := DecodeSync("alice,,0,#2:alice,1,0.0;|bob,1,1.0;")
	require.NoError(t, err)
	assert.Empty(t, got.Last)
	assert.Empty(t, got.Lead)
	assert.Equal(t, 0, got.PassCount)
}

func TestDecodeSyncMalformed(t *testing.T) {
	for _, bad := range []string{"", "a,b,0,", "a,b,x,#2:a,0,|b,0,", "a,b,0#2:a,0,|b,0,", ",b,0,#2:a,0,|b,0,"} {
		_, err := DecodeSync(bad)
		assert.ErrorIs(t, err, ErrDecode, "payload %q", bad)
	}
}
