// Package protocol implements the line-delimited wire format spoken between
// Big Two peers: "ordinal|payload\n" per message.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrDecode marks a malformed frame or payload. Receivers drop the message.
	ErrDecode = errors.New("protocol decode error")
	// ErrEncode marks a message that cannot be framed.
	ErrEncode = errors.New("protocol encode error")
)

// Type is the message type ordinal. Values are part of the wire format.
type Type int

const (
	ConnectionEstablished Type = iota
	JoinGame
	GameStart
	DealCards
	PlayRequest
	PlayBroadcast
	PlayCards // legacy; decoded but not acted on
	Pass
	PlayerLeft
	GameOver
	ChatMessage
	StateSync
)

var typeNames = map[Type]string{
	ConnectionEstablished: "CONNECTION_ESTABLISHED",
	JoinGame:              "JOIN_GAME",
	GameStart:             "GAME_START",
	DealCards:             "DEAL_CARDS",
	PlayRequest:           "PLAY_REQUEST",
	PlayBroadcast:         "PLAY_BROADCAST",
	PlayCards:             "PLAY_CARDS",
	Pass:                  "PASS",
	PlayerLeft:            "PLAYER_LEFT",
	GameOver:              "GAME_OVER",
	ChatMessage:           "CHAT_MESSAGE",
	StateSync:             "STATE_SYNC",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether t is a defined message type.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// Message is one decoded frame.
type Message struct {
	Type    Type
	Payload string
}

func (m Message) String() string {
	return fmt.Sprintf("%s|%s", m.Type, m.Payload)
}

// Encode frames m as "ordinal|payload\n".
func Encode(m Message) ([]byte, error) {
	if !m.Type.Known() {
		return nil, fmt.Errorf("%w: unknown type %d", ErrEncode, int(m.Type))
	}
	if strings.ContainsAny(m.Payload, "\r\n") {
		return nil, fmt.Errorf("%w: payload of %s contains a line break", ErrEncode, m.Type)
	}
	b := make([]byte, 0, len(m.Payload)+4)
	b = strconv.AppendInt(b, int64(m.Type), 10)
	b = append(b, '|')
	b = append(b, m.Payload...)
	b = append(b, '\n')
	return b, nil
}

// Decode parses one line without its trailing newline. Only the first '|'
// separates the ordinal; the payload may contain further '|' characters.
func Decode(line string) (Message, error) {
	line = strings.TrimSuffix(line, "\r")
	head, payload, ok := strings.Cut(line, "|")
	if !ok {
		return Message{}, fmt.Errorf("%w: missing separator in %q", ErrDecode, line)
	}
	n, err := strconv.Atoi(head)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad ordinal %q", ErrDecode, head)
	}
	t := Type(n)
	if !t.Known() {
		return Message{}, fmt.Errorf("%w: unknown ordinal %d", ErrDecode, n)
	}
	return Message{Type: t, Payload: payload}, nil
}

// reservedNameChars are the payload separators a player name must not contain.
const reservedNameChars = ":|,;#\r\n"

// ValidateName checks that name can be carried in every payload grammar.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty player name", ErrEncode)
	}
	if strings.ContainsAny(name, reservedNameChars) {
		return fmt.Errorf("%w: player name %q contains a reserved character", ErrEncode, name)
	}
	return nil
}
