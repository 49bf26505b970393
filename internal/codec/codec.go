// Package codec defines the wire envelope for the line-delimited JSON
// protocol. One message per line:
//
//	{"type": <kind>, "data": {...}, "player_id": <string|null>}
//
// Unknown kinds are rejected at decode time so protocol drift between
// client and server is caught instead of silently ignored.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown message kind")
var ErrEmptyMessage = errors.New("empty message")

type Kind string

const (
	KindPlayerJoin     Kind = "player_join"
	KindPlayerLeave    Kind = "player_leave"
	KindGameStart      Kind = "game_start"
	KindRoundStart     Kind = "round_start"
	KindPlayerResponse Kind = "player_response"
	KindRoundEnd       Kind = "round_end"
	KindGameEnd        Kind = "game_end"
	KindGameState      Kind = "game_state"
	KindSpecialMessage Kind = "special_message"
	KindHeartbeat      Kind = "heartbeat"
)

var kinds = map[Kind]bool{
	KindPlayerJoin:     true,
	KindPlayerLeave:    true,
	KindGameStart:      true,
	KindRoundStart:     true,
	KindPlayerResponse: true,
	KindRoundEnd:       true,
	KindGameEnd:        true,
	KindGameState:      true,
	KindSpecialMessage: true,
	KindHeartbeat:      true,
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !kinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

type Message struct {
	Type     Kind            `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
}

// New builds a message with the payload marshalled into Data.
func New(kind Kind, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Message{Type: kind, Data: data}, nil
}

// Encode serializes a message and appends the line delimiter.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode parses one line into a message. Malformed JSON and unknown
// kinds are errors; the caller is expected to drop the connection.
func Decode(line []byte) (Message, error) {
	if len(line) == 0 {
		return Message{}, ErrEmptyMessage
	}

	var raw struct {
		Type     string          `json:"type"`
		Data     json.RawMessage `json:"data"`
		PlayerID string          `json:"player_id"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	kind, err := ParseKind(raw.Type)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: kind, Data: raw.Data, PlayerID: raw.PlayerID}, nil
}

// DecodeData unmarshals the payload into v.
func (m Message) DecodeData(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: missing data", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}
