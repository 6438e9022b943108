// models/models.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoomStatus is the lifecycle of a room: lobby -> live -> ended.
type RoomStatus string

const (
	StatusLobby RoomStatus = "lobby"
	StatusLive  RoomStatus = "live"
	StatusEnded RoomStatus = "ended"
)

// Game slugs. Each bound game selects the module that owns the room's
// state document.
const (
	SlugReadMyMind   = "read-my-mind"
	SlugConfinamento = "confinamento-solitario"
	SlugBeleza       = "concurso-de-beleza"
	SlugSugoroku     = "future-sugoroku"
	SlugLeilao       = "leilao-de-cem-votos"
)

// Room is one game session instance, identified by a short code and
// bound to one game type. State is nil while the room is in the lobby.
type Room struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	GameSlug       string     `json:"game"`
	Status         RoomStatus `json:"status"`
	State          RoomState  `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// Player is a membership record. A user holds at most one player per
// room; elimination is a state flag, never removal.
type Player struct {
	ID         int64       `json:"id"`
	RoomID     int64       `json:"room_id"`
	UserID     int64       `json:"user_id"`
	Name       string      `json:"name"`
	DeviceID   string      `json:"device_id"`
	IsHost     bool        `json:"is_host"`
	Ready      bool        `json:"ready"`
	State      PlayerState `json:"state"`
	JoinedAt   time.Time   `json:"joined_at"`
	LastSeenAt time.Time   `json:"last_seen_at"`
}

// RoomState is the tagged union of per-game room documents. The
// concrete type is selected by the room's bound game slug.
type RoomState interface {
	GameSlug() string
}

// PlayerState is the per-game player document. Every game sets
// Eliminated once it starts.
type PlayerState interface {
	GameSlug() string
	IsEliminated() bool
}

// EncodeState marshals a room or player state document for storage.
// A nil document encodes as the empty JSON object.
func EncodeState(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(v)
}

// DecodeRoomState unmarshals a stored room document into the state
// type bound to slug. Empty documents decode to nil.
func DecodeRoomState(slug string, raw json.RawMessage) (RoomState, error) {
	if emptyDoc(raw) {
		return nil, nil
	}
	switch slug {
	case SlugReadMyMind:
		s := &ReadMyMindState{}
		return s, json.Unmarshal(raw, s)
	case SlugConfinamento:
		s := &ConfinamentoState{}
		return s, json.Unmarshal(raw, s)
	case SlugBeleza:
		s := &BelezaState{}
		return s, json.Unmarshal(raw, s)
	case SlugSugoroku:
		s := &SugorokuState{}
		return s, json.Unmarshal(raw, s)
	case SlugLeilao:
		s := &LeilaoState{}
		return s, json.Unmarshal(raw, s)
	}
	return nil, fmt.Errorf("models: unknown game slug %q", slug)
}

// DecodePlayerState unmarshals a stored player document for the game
// bound to slug. Empty documents decode to nil.
func DecodePlayerState(slug string, raw json.RawMessage) (PlayerState, error) {
	if emptyDoc(raw) {
		return nil, nil
	}
	switch slug {
	case SlugReadMyMind:
		s := &ReadMyMindPlayerState{}
		return s, json.Unmarshal(raw, s)
	case SlugConfinamento:
		s := &ConfinamentoPlayerState{}
		return s, json.Unmarshal(raw, s)
	case SlugBeleza:
		s := &BelezaPlayerState{}
		return s, json.Unmarshal(raw, s)
	case SlugSugoroku:
		s := &SugorokuPlayerState{}
		return s, json.Unmarshal(raw, s)
	case SlugLeilao:
		s := &LeilaoPlayerState{}
		return s, json.Unmarshal(raw, s)
	}
	return nil, fmt.Errorf("models: unknown game slug %q", slug)
}

func emptyDoc(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	trimmed := string(raw)
	return trimmed == "{}" || trimmed == "null"
}
