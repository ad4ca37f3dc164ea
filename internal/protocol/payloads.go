package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"bigtwo/internal/domain"
)

const (
	nextMarker = "|next="
	selfMarker = ";self="
)

// Hand is one seat of a deal, in seat order.
type Hand struct {
	Name  string
	Cards []domain.Card
}

// Deal is the DEAL_CARDS payload: every seat's hand plus the receiver's name.
type Deal struct {
	Hands []Hand
	Self  string
}

// EncodeDeal writes `N:name,size,cards|name,size,cards;self=local`.
func EncodeDeal(d Deal) (string, error) {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(d.Hands)))
	sb.WriteByte(':')
	for i, h := range d.Hands {
		if err := ValidateName(h.Name); err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(h.Name)
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(len(h.Cards)))
		sb.WriteByte(',')
		sb.WriteString(EncodeCards(h.Cards))
	}
	if d.Self != "" {
		sb.WriteString(selfMarker)
		sb.WriteString(d.Self)
	}
	return sb.String(), nil
}

// DecodeDeal parses a DEAL_CARDS payload. The declared seat count and every
// declared hand size must match the data.
func DecodeDeal(payload string) (Deal, error) {
	var d Deal
	body := payload
	if i := strings.LastIndex(payload, selfMarker); i >= 0 {
		body = payload[:i]
		d.Self = payload[i+len(selfMarker):]
	}

	head, rest, ok := strings.Cut(body, ":")
	if !ok {
		return Deal{}, fmt.Errorf("%w: deal without seat count", ErrDecode)
	}
	n, err := strconv.Atoi(head)
	if err != nil || n <= 0 || n > domain.MaxPlayers {
		return Deal{}, fmt.Errorf("%w: deal seat count %q", ErrDecode, head)
	}

	segments := strings.Split(rest, "|")
	if len(segments) != n {
		return Deal{}, fmt.Errorf("%w: deal declares %d seats, has %d", ErrDecode, n, len(segments))
	}
	seen := make(map[domain.Card]bool, domain.DeckSize)
	for _, seg := range segments {
		fields := strings.SplitN(seg, ",", 3)
		if len(fields) != 3 || fields[0] == "" {
			return Deal{}, fmt.Errorf("%w: deal seat %q", ErrDecode, seg)
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return Deal{}, fmt.Errorf("%w: hand size %q", ErrDecode, fields[1])
		}
		cards, err := DecodeCards(fields[2])
		if err != nil {
			return Deal{}, err
		}
		if len(cards) != size {
			return Deal{}, fmt.Errorf("%w: %s declares %d cards, has %d", ErrDecode, fields[0], size, len(cards))
		}
		for _, c := range cards {
			if seen[c] {
				return Deal{}, fmt.Errorf("%w: card %s dealt twice", ErrDecode, c)
			}
			seen[c] = true
		}
		d.Hands = append(d.Hands, Hand{Name: fields[0], Cards: cards})
	}
	return d, nil
}

// Play is a PLAY_REQUEST or PLAY_BROADCAST payload. Next is only set by the
// host.
type Play struct {
	Player string
	Cards  []domain.Card
	Next   string
}

// EncodePlay writes `name:cards` and appends `|next=X` when Next is set.
func EncodePlay(p Play) string {
	s := p.Player + ":" + EncodeCards(p.Cards)
	if p.Next != "" {
		s += nextMarker + p.Next
	}
	return s
}

// DecodePlay parses either play payload.
func DecodePlay(payload string) (Play, error) {
	body, next, _ := strings.Cut(payload, nextMarker)
	name, cardList, ok := strings.Cut(body, ":")
	if !ok || name == "" {
		return Play{}, fmt.Errorf("%w: play payload %q", ErrDecode, payload)
	}
	cards, err := DecodeCards(cardList)
	if err != nil {
		return Play{}, err
	}
	if len(cards) == 0 {
		return Play{}, fmt.Errorf("%w: play without cards", ErrDecode)
	}
	return Play{Player: name, Cards: cards, Next: next}, nil
}

// PassMove is a PASS payload.
type PassMove struct {
	Player string
	Next   string
}

// EncodePass writes `name` and appends `|next=X` when Next is set.
func EncodePass(p PassMove) string {
	if p.Next == "" {
		return p.Player
	}
	return p.Player + nextMarker + p.Next
}

// DecodePass parses a PASS payload.
func DecodePass(payload string) (PassMove, error) {
	name, next, _ := strings.Cut(payload, nextMarker)
	if name == "" {
		return PassMove{}, fmt.Errorf("%w: pass without player", ErrDecode)
	}
	return PassMove{Player: name, Next: next}, nil
}

// Sync is the STATE_SYNC payload: the host's turn state followed by the full
// deal of current hands.
type Sync struct {
	Current   string
	Last      string // empty before the first play
	PassCount int
	Lead      []domain.Card // empty on a free lead
	Deal      Deal
}

// EncodeSync writes `current,last,passCount,leadCards#<deal payload>`.
func EncodeSync(s Sync) (string, error) {
	deal, err := EncodeDeal(s.Deal)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		s.Current,
		s.Last,
		strconv.Itoa(s.PassCount),
		EncodeCards(s.Lead),
	}, ",") + "#" + deal, nil
}

// DecodeSync parses a STATE_SYNC payload.
func DecodeSync(payload string) (Sync, error) {
	head, deal, ok := strings.Cut(payload, "#")
	if !ok {
		return Sync{}, fmt.Errorf("%w: sync without deal", ErrDecode)
	}
	fields := strings.Split(head, ",")
	if len(fields) != 4 || fields[0] == "" {
		return Sync{}, fmt.Errorf("%w: sync header %q", ErrDecode, head)
	}
	passCount, err := strconv.Atoi(fields[2])
	if err != nil || passCount < 0 {
		return Sync{}, fmt.Errorf("%w: sync pass count %q", ErrDecode, fields[2])
	}
	lead, err := DecodeCards(fields[3])
	if err != nil {
		return Sync{}, err
	}
	d, err := DecodeDeal(deal)
	if err != nil {
		return Sync{}, err
	}
	return Sync{
		Current:   fields[0],
		Last:      fields[1],
		PassCount: passCount,
		Lead:      lead,
		Deal:      d,
	}, nil
}
