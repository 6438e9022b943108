package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/wfunc/partybox/models"
)

func memRoom(t *testing.T, m *Memory, code string) *models.Room {
	t.Helper()
	room := &models.Room{
		Code:           code,
		GameSlug:       models.SlugBeleza,
		Status:         models.StatusLobby,
		CreatedAt:      time.Unix(1_700_000_000, 0),
		LastActivityAt: time.Unix(1_700_000_000, 0),
	}
	if err := m.CreateRoom(room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return room
}

func memPlayer(t *testing.T, m *Memory, roomID, userID int64) *models.Player {
	t.Helper()
	player := &models.Player{
		RoomID:     roomID,
		UserID:     userID,
		Name:       "p",
		JoinedAt:   time.Unix(1_700_000_000, 0),
		LastSeenAt: time.Unix(1_700_000_000, 0),
	}
	if err := m.CreatePlayer(player); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return player
}

func TestMemory_RoomLifecycle(t *testing.T) {
	m := NewMemory()

	room := memRoom(t, m, "1234")
	if room.ID == 0 {
		t.Fatalf("CreateRoom must assign an id")
	}
	second := memRoom(t, m, "5678")
	if second.ID != room.ID+1 {
		t.Errorf("room ids should be sequential, got %d then %d", room.ID, second.ID)
	}

	got, err := m.GetRoom("1234")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.Code != "1234" || got.GameSlug != models.SlugBeleza || got.Status != models.StatusLobby {
		t.Errorf("unexpected room %+v", got)
	}
	if got.State != nil {
		t.Errorf("fresh room should decode a nil state, got %T", got.State)
	}

	if _, err := m.GetRoom("0000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	exists, err := m.RoomCodeExists("1234")
	if err != nil || !exists {
		t.Errorf("RoomCodeExists(1234) = %v, %v", exists, err)
	}
	exists, err = m.RoomCodeExists("0000")
	if err != nil || exists {
		t.Errorf("RoomCodeExists(0000) = %v, %v", exists, err)
	}
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	m := NewMemory()
	room := memRoom(t, m, "1234")

	got, err := m.GetRoom("1234")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	got.Status = models.StatusEnded
	got.State = &models.BelezaState{Game: models.SlugBeleza, Round: 9}

	reread, err := m.GetRoom("1234")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if reread.Status != models.StatusLobby || reread.State != nil {
		t.Errorf("mutating a read result must not leak into the store")
	}

	// Same for player documents.
	player := memPlayer(t, m, room.ID, 10)
	player.State = &models.BelezaPlayerState{Score: 5}
	if err := m.SavePlayer(player, "state"); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	gotP, err := m.GetPlayer(room.ID, 10)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	gotP.State.(*models.BelezaPlayerState).Score = 99
	rereadP, err := m.GetPlayer(room.ID, 10)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if rereadP.State.(*models.BelezaPlayerState).Score != 5 {
		t.Errorf("player state copy leaked into the store")
	}
}

func TestMemory_SaveRoomFieldGating(t *testing.T) {
	m := NewMemory()
	room := memRoom(t, m, "1234")

	room.Status = models.StatusLive
	room.GameSlug = models.SlugLeilao
	if err := m.SaveRoom(room, "status"); err != nil {
		t.Fatalf("SaveRoom: %v", err)
	}

	got, err := m.GetRoom("1234")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.Status != models.StatusLive {
		t.Errorf("status was requested and must be saved")
	}
	if got.GameSlug != models.SlugBeleza {
		t.Errorf("game_slug was not requested and must not be saved, got %q", got.GameSlug)
	}

	// No field list means save everything.
	room.GameSlug = models.SlugLeilao
	room.State = &models.LeilaoState{Game: models.SlugLeilao, Round: 1}
	if err := m.SaveRoom(room); err != nil {
		t.Fatalf("SaveRoom: %v", err)
	}
	got, err = m.GetRoom("1234")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.GameSlug != models.SlugLeilao {
		t.Errorf("full save should update game_slug")
	}
	if _, ok := got.State.(*models.LeilaoState); !ok {
		t.Errorf("full save should update state, got %T", got.State)
	}

	stranger := &models.Room{Code: "0000"}
	if err := m.SaveRoom(stranger, "status"); !errors.Is(err, ErrNotFound) {
		t.Errorf("saving a missing room should be ErrNotFound, got %v", err)
	}
}

func TestMemory_Players(t *testing.T) {
	m := NewMemory()
	room := memRoom(t, m, "1234")

	p1 := memPlayer(t, m, room.ID, 10)
	p2 := memPlayer(t, m, room.ID, 11)
	if p1.ID == 0 || p2.ID != p1.ID+1 {
		t.Errorf("player ids should be sequential, got %d then %d", p1.ID, p2.ID)
	}

	dup := &models.Player{RoomID: room.ID, UserID: 10, Name: "dup"}
	if err := m.CreatePlayer(dup); !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("expected ErrDuplicatePlayer, got %v", err)
	}

	list, err := m.ListPlayers(room.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(list) != 2 || list[0].ID != p1.ID || list[1].ID != p2.ID {
		t.Errorf("ListPlayers should order by id ascending, got %+v", list)
	}

	if _, err := m.GetPlayer(room.ID, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := m.ListPlayers(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestMemory_SavePlayerFieldGating(t *testing.T) {
	m := NewMemory()
	room := memRoom(t, m, "1234")
	player := memPlayer(t, m, room.ID, 10)

	player.Ready = true
	player.Name = "renamed"
	if err := m.SavePlayer(player, "ready"); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	got, err := m.GetPlayer(room.ID, 10)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if !got.Ready {
		t.Errorf("ready was requested and must be saved")
	}
	if got.Name != "p" {
		t.Errorf("name was not requested and must not be saved, got %q", got.Name)
	}

	missing := &models.Player{ID: 999, RoomID: room.ID}
	if err := m.SavePlayer(missing, "ready"); !errors.Is(err, ErrNotFound) {
		t.Errorf("saving a missing player should be ErrNotFound, got %v", err)
	}
}

func TestMemory_CountRooms(t *testing.T) {
	m := NewMemory()
	memRoom(t, m, "1111")
	memRoom(t, m, "2222")
	live := memRoom(t, m, "3333")
	live.Status = models.StatusLive
	if err := m.SaveRoom(live, "status"); err != nil {
		t.Fatalf("SaveRoom: %v", err)
	}

	lobby, err := m.CountRooms(models.StatusLobby)
	if err != nil || lobby != 2 {
		t.Errorf("CountRooms(lobby) = %d, %v", lobby, err)
	}
	liveN, err := m.CountRooms(models.StatusLive)
	if err != nil || liveN != 1 {
		t.Errorf("CountRooms(live) = %d, %v", liveN, err)
	}
	ended, err := m.CountRooms(models.StatusEnded)
	if err != nil || ended != 0 {
		t.Errorf("CountRooms(ended) = %d, %v", ended, err)
	}
}
