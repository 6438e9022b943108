// persistence/memory.go
package persistence

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/partybox/models"
)

// memoryRoom and memoryPlayer hold state as raw JSON documents so the
// memory store behaves like the external document stores: every read
// returns an independent copy and every save is a document overwrite.
type memoryRoom struct {
	id             int64
	code           string
	gameSlug       string
	status         models.RoomStatus
	state          json.RawMessage
	createdAt      time.Time
	lastActivityAt time.Time
}

type memoryPlayer struct {
	id         int64
	roomID     int64
	userID     int64
	name       string
	deviceID   string
	isHost     bool
	ready      bool
	state      json.RawMessage
	joinedAt   time.Time
	lastSeenAt time.Time
}

// Memory is the in-process Store used by tests and the default
// configuration.
type Memory struct {
	mu         sync.RWMutex
	rooms      map[string]*memoryRoom // code -> room
	players    map[int64][]*memoryPlayer
	nextRoomID int64
	nextPlayer int64
}

func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]*memoryRoom),
		players: make(map[int64][]*memoryPlayer),
	}
}

func (m *Memory) CreateRoom(room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRoomID++
	room.ID = m.nextRoomID
	raw, err := models.EncodeState(room.State)
	if err != nil {
		return err
	}
	m.rooms[room.Code] = &memoryRoom{
		id:             room.ID,
		code:           room.Code,
		gameSlug:       room.GameSlug,
		status:         room.Status,
		state:          raw,
		createdAt:      room.CreatedAt,
		lastActivityAt: room.LastActivityAt,
	}
	return nil
}

func (m *Memory) GetRoom(code string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeMemoryRoom(r)
}

func decodeMemoryRoom(r *memoryRoom) (*models.Room, error) {
	state, err := models.DecodeRoomState(r.gameSlug, r.state)
	if err != nil {
		return nil, err
	}
	return &models.Room{
		ID:             r.id,
		Code:           r.code,
		GameSlug:       r.gameSlug,
		Status:         r.status,
		State:          state,
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivityAt,
	}, nil
}

func (m *Memory) SaveRoom(room *models.Room, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[room.Code]
	if !ok {
		return ErrNotFound
	}
	if fieldRequested(fields, "game_slug") {
		r.gameSlug = room.GameSlug
	}
	if fieldRequested(fields, "status") {
		r.status = room.Status
	}
	if fieldRequested(fields, "state") {
		raw, err := models.EncodeState(room.State)
		if err != nil {
			return err
		}
		r.state = raw
	}
	if fieldRequested(fields, "last_activity_at") {
		r.lastActivityAt = room.LastActivityAt
	}
	return nil
}

func (m *Memory) RoomCodeExists(code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[code]
	return ok, nil
}

func (m *Memory) CountRooms(status models.RoomStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, r := range m.rooms {
		if r.status == status {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreatePlayer(player *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players[player.RoomID] {
		if p.userID == player.UserID {
			return ErrDuplicatePlayer
		}
	}
	m.nextPlayer++
	player.ID = m.nextPlayer
	raw, err := models.EncodeState(player.State)
	if err != nil {
		return err
	}
	m.players[player.RoomID] = append(m.players[player.RoomID], &memoryPlayer{
		id:         player.ID,
		roomID:     player.RoomID,
		userID:     player.UserID,
		name:       player.Name,
		deviceID:   player.DeviceID,
		isHost:     player.IsHost,
		ready:      player.Ready,
		state:      raw,
		joinedAt:   player.JoinedAt,
		lastSeenAt: player.LastSeenAt,
	})
	return nil
}

func (m *Memory) GetPlayer(roomID, userID int64) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roomByID(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	for _, p := range m.players[roomID] {
		if p.userID == userID {
			return decodeMemoryPlayer(r.gameSlug, p)
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPlayers(roomID int64) ([]*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roomByID(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	list := append([]*memoryPlayer{}, m.players[roomID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	out := make([]*models.Player, 0, len(list))
	for _, p := range list {
		decoded, err := decodeMemoryPlayer(r.gameSlug, p)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

func decodeMemoryPlayer(slug string, p *memoryPlayer) (*models.Player, error) {
	var state models.PlayerState
	if slug != "" {
		decoded, err := models.DecodePlayerState(slug, p.state)
		if err != nil {
			return nil, err
		}
		state = decoded
	}
	return &models.Player{
		ID:         p.id,
		RoomID:     p.roomID,
		UserID:     p.userID,
		Name:       p.name,
		DeviceID:   p.deviceID,
		IsHost:     p.isHost,
		Ready:      p.ready,
		State:      state,
		JoinedAt:   p.joinedAt,
		LastSeenAt: p.lastSeenAt,
	}, nil
}

func (m *Memory) SavePlayer(player *models.Player, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players[player.RoomID] {
		if p.id != player.ID {
			continue
		}
		if fieldRequested(fields, "name") {
			p.name = player.Name
		}
		if fieldRequested(fields, "device_id") {
			p.deviceID = player.DeviceID
		}
		if fieldRequested(fields, "ready") {
			p.ready = player.Ready
		}
		if fieldRequested(fields, "state") {
			raw, err := models.EncodeState(player.State)
			if err != nil {
				return err
			}
			p.state = raw
		}
		if fieldRequested(fields, "last_seen_at") {
			p.lastSeenAt = player.LastSeenAt
		}
		return nil
	}
	return ErrNotFound
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) roomByID(roomID int64) (*memoryRoom, bool) {
	for _, r := range m.rooms {
		if r.id == roomID {
			return r, true
		}
	}
	return nil, false
}
