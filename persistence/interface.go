// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/partybox/models"
)

// ErrNotFound is returned when a room or player record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicatePlayer is returned when a user already holds a player
// record in the room (unique (room, user) constraint).
var ErrDuplicatePlayer = errors.New("player already in room")

// Store is the key-value persistence the engine runs against. The
// engine reads current documents, computes new state and writes whole
// documents back (last-writer-wins); implementations must serialize
// concurrent writes to the same room.
//
// Save calls take the names of the fields that actually changed;
// implementations may persist only those. Valid room fields: game_slug,
// status, state, last_activity_at. Valid player fields: name,
// device_id, ready, state, last_seen_at.
type Store interface {
	CreateRoom(room *models.Room) error
	GetRoom(code string) (*models.Room, error)
	SaveRoom(room *models.Room, fields ...string) error
	RoomCodeExists(code string) (bool, error)
	CountRooms(status models.RoomStatus) (int64, error)

	CreatePlayer(player *models.Player) error
	GetPlayer(roomID, userID int64) (*models.Player, error)
	ListPlayers(roomID int64) ([]*models.Player, error)
	SavePlayer(player *models.Player, fields ...string) error

	Close() error
}

func fieldRequested(fields []string, name string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
