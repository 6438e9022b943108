package room

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/game"
	"github.com/wfunc/partybox/models"
	"github.com/wfunc/partybox/persistence"
	"github.com/wfunc/partybox/rng"
)

func newTestManager(seed int64) (*Manager, *clock.Fake) {
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	env := &game.Env{
		RNG:   rng.NewSeeded(seed),
		Clock: fake,
		Log:   zap.NewNop().Sugar(),
	}
	return NewManager(persistence.NewMemory(), env, 4), fake
}

// lobbyRoom creates a room and joins n players, all ready.
func lobbyRoom(t *testing.T, m *Manager, slug string, n int) *models.Room {
	t.Helper()
	room, err := m.CreateRoom(slug)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for i := 1; i <= n; i++ {
		if _, _, err := m.Join(room.Code, int64(i), "p", "dev"); err != nil {
			t.Fatalf("Join user %d: %v", i, err)
		}
		if _, err := m.Ready(room.Code, int64(i), true); err != nil {
			t.Fatalf("Ready user %d: %v", i, err)
		}
	}
	return room
}

func TestManager_CreateRoom(t *testing.T) {
	m, _ := newTestManager(1)

	room, err := m.CreateRoom(models.SlugBeleza)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(room.Code) != 4 {
		t.Fatalf("expected 4-digit code, got %q", room.Code)
	}
	if room.Code[0] == '0' {
		t.Errorf("code must not start with zero: %q", room.Code)
	}
	for _, c := range room.Code {
		if c < '0' || c > '9' {
			t.Errorf("code must be numeric, got %q", room.Code)
		}
	}
	if room.Status != models.StatusLobby {
		t.Errorf("expected lobby status, got %q", room.Status)
	}
	if room.State != nil {
		t.Errorf("expected nil state on a fresh room")
	}

	if _, err := m.CreateRoom("no-such-game"); game.KindOf(err) != game.KindValidationError {
		t.Errorf("expected validation_error for unknown game, got %v", err)
	}
}

func TestManager_Join(t *testing.T) {
	m, _ := newTestManager(2)
	room, err := m.CreateRoom(models.SlugConfinamento)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_, first, err := m.Join(room.Code, 10, "Ana", "dev-a")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !first.IsHost {
		t.Errorf("first player should be host")
	}
	_, second, err := m.Join(room.Code, 11, "Bea", "dev-b")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if second.IsHost {
		t.Errorf("second player must not be host")
	}

	// Rejoin updates the profile instead of creating a duplicate.
	_, again, err := m.Join(room.Code, 10, "Ana Maria", "dev-a2")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("rejoin must reuse the player row")
	}
	if again.Name != "Ana Maria" || again.DeviceID != "dev-a2" {
		t.Errorf("rejoin should update name and device, got %q/%q", again.Name, again.DeviceID)
	}
	if _, players, err := m.Fetch(room.Code); err != nil || len(players) != 2 {
		t.Fatalf("expected 2 players, got %d (err %v)", len(players), err)
	}

	if _, err := m.Ready(room.Code, 10, true); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if _, err := m.Ready(room.Code, 11, true); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if _, err := m.Start(room.Code, 10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := m.Join(room.Code, 12, "Late", "dev-c"); game.KindOf(err) != game.KindPreconditionFailed {
		t.Errorf("joining a live room should fail with precondition_failed, got %v", err)
	}
	// Rejoin of an existing member still works after start.
	if _, _, err := m.Join(room.Code, 11, "Bea", "dev-b"); err != nil {
		t.Errorf("member rejoin after start: %v", err)
	}
}

func TestManager_Start(t *testing.T) {
	m, _ := newTestManager(3)
	room, err := m.CreateRoom(models.SlugBeleza)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, _, err := m.Join(room.Code, 1, "a", ""); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := m.Start(room.Code, 1); game.KindOf(err) != game.KindPreconditionFailed {
		t.Errorf("start below min players should fail, got %v", err)
	}
	if _, _, err := m.Join(room.Code, 2, "b", ""); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := m.Ready(room.Code, 1, true); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if _, err := m.Start(room.Code, 1); game.KindOf(err) != game.KindPreconditionFailed {
		t.Errorf("start with an unready player should fail, got %v", err)
	}
	if _, err := m.Ready(room.Code, 2, true); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	started, err := m.Start(room.Code, 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != models.StatusLive {
		t.Errorf("expected live, got %q", started.Status)
	}
	if started.State == nil {
		t.Errorf("start must initialize room state")
	}
	_, players, err := m.Fetch(room.Code)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, p := range players {
		if p.State == nil {
			t.Errorf("player %d has no state after start", p.UserID)
		}
	}

	if _, err := m.Start(room.Code, 1); game.KindOf(err) != game.KindActionNotLegalInPhase {
		t.Errorf("restarting a live room should fail, got %v", err)
	}
}

func TestManager_ReadMyMindMode(t *testing.T) {
	m, _ := newTestManager(4)
	room := lobbyRoom(t, m, models.SlugReadMyMind, 2)

	// read-my-mind refuses to start until a mode is chosen
	if _, err := m.Start(room.Code, 1); game.KindOf(err) != game.KindPreconditionFailed {
		t.Fatalf("start without mode should fail, got %v", err)
	}
	if _, err := m.SetReadMyMindMode(room.Code, 1, "solo"); game.KindOf(err) != game.KindValidationError {
		t.Errorf("invalid mode should fail, got %v", err)
	}
	if _, err := m.SetReadMyMindMode(room.Code, 1, game.ModeCoop); err != nil {
		t.Fatalf("SetReadMyMindMode: %v", err)
	}
	started, err := m.Start(room.Code, 1)
	if err != nil {
		t.Fatalf("Start after mode: %v", err)
	}
	state, ok := started.State.(*models.ReadMyMindState)
	if !ok {
		t.Fatalf("unexpected state type %T", started.State)
	}
	if state.Mode != game.ModeCoop {
		t.Errorf("expected coop mode, got %q", state.Mode)
	}

	other := lobbyRoom(t, m, models.SlugBeleza, 2)
	if _, err := m.SetReadMyMindMode(other.Code, 1, game.ModeCoop); game.KindOf(err) != game.KindInvalidGameForRoom {
		t.Errorf("mode on a non read-my-mind room should fail, got %v", err)
	}
}

func TestManager_ChangeGame(t *testing.T) {
	m, _ := newTestManager(5)
	room := lobbyRoom(t, m, models.SlugBeleza, 2)
	if _, err := m.Start(room.Code, 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.End(room.Code, 1); err != nil {
		t.Fatalf("End: %v", err)
	}

	changed, err := m.ChangeGame(room.Code, 1, models.SlugLeilao)
	if err != nil {
		t.Fatalf("ChangeGame: %v", err)
	}
	if changed.GameSlug != models.SlugLeilao {
		t.Errorf("expected leilao, got %q", changed.GameSlug)
	}
	if changed.Status != models.StatusLobby {
		t.Errorf("expected lobby after change, got %q", changed.Status)
	}
	if changed.State != nil {
		t.Errorf("room state must be cleared on change")
	}
	_, players, err := m.Fetch(room.Code)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, p := range players {
		if p.State != nil {
			t.Errorf("player %d state must be cleared", p.UserID)
		}
		if p.Ready {
			t.Errorf("player %d must be unready after change", p.UserID)
		}
	}

	if _, err := m.ChangeGame(room.Code, 1, "bogus"); game.KindOf(err) != game.KindValidationError {
		t.Errorf("unknown game should fail, got %v", err)
	}
}

func TestManager_Apply(t *testing.T) {
	m, _ := newTestManager(6)
	room := lobbyRoom(t, m, models.SlugBeleza, 2)

	// actions against a lobby room are rejected
	if _, err := m.Apply(room.Code, 1, game.NumberGuessAction{Value: 50}); game.KindOf(err) != game.KindActionNotLegalInPhase {
		t.Errorf("apply in lobby should fail, got %v", err)
	}
	if _, err := m.Start(room.Code, 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.Apply(room.Code, 1, game.BidAction{Amount: 10}); game.KindOf(err) != game.KindInvalidGameForRoom {
		t.Errorf("wrong-game action should fail, got %v", err)
	}
	if _, err := m.Apply(room.Code, 99, game.NumberGuessAction{Value: 50}); game.KindOf(err) != game.KindPlayerNotInRoom {
		t.Errorf("outsider action should fail, got %v", err)
	}

	if _, err := m.Apply(room.Code, 1, game.NumberGuessAction{Value: 40}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	_, players, err := m.Fetch(room.Code)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	state := players[0].State.(*models.BelezaPlayerState)
	if state.Guess == nil || *state.Guess != 40 {
		t.Errorf("guess was not persisted")
	}
}

func TestManager_Tick(t *testing.T) {
	m, fake := newTestManager(7)
	room := lobbyRoom(t, m, models.SlugConfinamento, 2)

	// lobby tick is a no-op
	ticked, err := m.Tick(room.Code, models.SlugConfinamento)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if ticked.Status != models.StatusLobby {
		t.Errorf("lobby tick must not change status")
	}
	if _, err := m.Tick(room.Code, models.SlugLeilao); game.KindOf(err) != game.KindInvalidGameForRoom {
		t.Errorf("wrong-slug tick should fail, got %v", err)
	}

	if _, err := m.Start(room.Code, 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fake.Advance(10 * time.Minute)
	ticked, err = m.Tick(room.Code, models.SlugConfinamento)
	if err != nil {
		t.Fatalf("Tick after deadline: %v", err)
	}
	// with nobody guessing past the deadline everyone is eliminated
	// and the round force-resolves, so the room must have ended
	if ticked.Status != models.StatusEnded {
		t.Errorf("expected ended after forced resolution, got %q", ticked.Status)
	}
}

func TestManager_Heartbeat(t *testing.T) {
	m, fake := newTestManager(8)
	room := lobbyRoom(t, m, models.SlugBeleza, 1)

	fake.Advance(90 * time.Second)
	player, err := m.Heartbeat(room.Code, 1)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if !player.LastSeenAt.Equal(fake.Now()) {
		t.Errorf("heartbeat should refresh last_seen_at")
	}
	if _, err := m.Heartbeat(room.Code, 99); game.KindOf(err) != game.KindPlayerNotInRoom {
		t.Errorf("heartbeat by outsider should fail, got %v", err)
	}
}

func TestManager_End(t *testing.T) {
	m, _ := newTestManager(9)
	room := lobbyRoom(t, m, models.SlugBeleza, 2)

	if _, err := m.End(room.Code, 1); game.KindOf(err) != game.KindActionNotLegalInPhase {
		t.Errorf("ending a lobby room should fail, got %v", err)
	}
	if _, err := m.Start(room.Code, 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ended, err := m.End(room.Code, 1)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != models.StatusEnded {
		t.Errorf("expected ended, got %q", ended.Status)
	}
}
