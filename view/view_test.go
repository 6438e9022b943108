package view

import (
	"testing"
	"time"

	"github.com/wfunc/partybox/models"
)

var viewNow = time.Unix(1_700_000_000, 0)

func confinamentoFixture() (*models.Room, []*models.Player) {
	guess := "hearts"
	room := &models.Room{
		ID:       1,
		Code:     "1234",
		GameSlug: models.SlugConfinamento,
		Status:   models.StatusLive,
		State: &models.ConfinamentoState{
			Game:           models.SlugConfinamento,
			Round:          2,
			ValetePlayerID: 2,
		},
	}
	players := []*models.Player{
		{ID: 1, RoomID: 1, UserID: 10, Name: "a", LastSeenAt: viewNow,
			State: &models.ConfinamentoPlayerState{Suit: "hearts", Guess: &guess}},
		{ID: 2, RoomID: 1, UserID: 11, Name: "b", LastSeenAt: viewNow,
			State: &models.ConfinamentoPlayerState{Suit: "spades"}},
	}
	return room, players
}

func TestProject_ConfinamentoRedaction(t *testing.T) {
	room, players := confinamentoFixture()

	rv := Project(room, players, 10, viewNow)
	if _, ok := rv.State["valete_player_id"]; ok {
		t.Errorf("valete_player_id must never be exposed")
	}
	if rv.State["round"] != float64(2) {
		t.Errorf("round should survive redaction, got %v", rv.State["round"])
	}

	self := rv.Players[0].State
	other := rv.Players[1].State
	if _, ok := self["suit"]; ok {
		t.Errorf("viewer must not see their own suit")
	}
	if suit, ok := other["suit"]; !ok || suit != "spades" {
		t.Errorf("viewer should see other players' suits, got %v", other["suit"])
	}
	if _, ok := self["guess"]; ok {
		t.Errorf("guesses must never be exposed")
	}
	if _, ok := other["guess"]; ok {
		t.Errorf("guesses must never be exposed")
	}
	if elim, ok := self["eliminated"]; !ok || elim != false {
		t.Errorf("eliminated flag should survive redaction")
	}
}

func TestProject_ConfinamentoSpectator(t *testing.T) {
	room, players := confinamentoFixture()

	rv := Project(room, players, 0, viewNow)
	for i, pv := range rv.Players {
		if _, ok := pv.State["suit"]; ok {
			t.Errorf("spectator must not see player %d suit", i)
		}
		if _, ok := pv.State["guess"]; ok {
			t.Errorf("spectator must not see player %d guess", i)
		}
	}
}

func TestProject_BelezaRedaction(t *testing.T) {
	guess := 42
	room := &models.Room{
		ID:       1,
		Code:     "1234",
		GameSlug: models.SlugBeleza,
		Status:   models.StatusLive,
		State:    &models.BelezaState{Game: models.SlugBeleza, Round: 1, Phase: "guess"},
	}
	players := []*models.Player{
		{ID: 1, UserID: 10, LastSeenAt: viewNow,
			State: &models.BelezaPlayerState{Score: -3, Guess: &guess}},
	}

	rv := Project(room, players, 10, viewNow)
	ps := rv.Players[0].State
	if _, ok := ps["guess"]; ok {
		t.Errorf("pending guess must be hidden, even from its owner")
	}
	if score, ok := ps["score"]; !ok || score != float64(-3) {
		t.Errorf("score should be visible, got %v", ps["score"])
	}
}

func TestProject_LeilaoRedaction(t *testing.T) {
	room := &models.Room{
		ID:       1,
		Code:     "1234",
		GameSlug: models.SlugLeilao,
		Status:   models.StatusLive,
		State:    &models.LeilaoState{Game: models.SlugLeilao, Round: 3, Pot: 100},
	}
	players := []*models.Player{
		{ID: 1, UserID: 10, LastSeenAt: viewNow,
			State: &models.LeilaoPlayerState{Points: 120, Bid: 30, Submitted: true}},
		{ID: 2, UserID: 11, LastSeenAt: viewNow,
			State: &models.LeilaoPlayerState{Points: 80, Bid: 45, Submitted: true}},
	}

	rv := Project(room, players, 10, viewNow)
	self := rv.Players[0].State
	other := rv.Players[1].State
	for _, doc := range []map[string]any{self, other} {
		if _, ok := doc["bid"]; ok {
			t.Errorf("sealed bids must be hidden")
		}
		if _, ok := doc["submitted"]; ok {
			t.Errorf("submission flags must be hidden")
		}
	}
	if pts, ok := self["points"]; !ok || pts != float64(120) {
		t.Errorf("players should see their own points, got %v", self["points"])
	}
	if _, ok := other["points"]; ok {
		t.Errorf("other players' points must be hidden")
	}

	spectator := Project(room, players, 0, viewNow)
	if _, ok := spectator.Players[0].State["points"]; ok {
		t.Errorf("spectators must not see any points")
	}
}

func TestProject_SugorokuNotRedacted(t *testing.T) {
	room := &models.Room{
		ID:       1,
		Code:     "1234",
		GameSlug: models.SlugSugoroku,
		Status:   models.StatusLive,
		State:    &models.SugorokuState{Game: models.SlugSugoroku, Turn: 1},
	}
	players := []*models.Player{
		{ID: 1, UserID: 10, LastSeenAt: viewNow,
			State: &models.SugorokuPlayerState{Points: 12, Position: models.Coord{1, 0}}},
	}

	rv := Project(room, players, 11, viewNow)
	ps := rv.Players[0].State
	if pts, ok := ps["points"]; !ok || pts != float64(12) {
		t.Errorf("sugoroku points are public, got %v", ps["points"])
	}
	if _, ok := ps["position"]; !ok {
		t.Errorf("sugoroku positions are public")
	}
}

func TestProject_OnlineWindow(t *testing.T) {
	room := &models.Room{ID: 1, Code: "1234", GameSlug: models.SlugBeleza, Status: models.StatusLobby}
	players := []*models.Player{
		{ID: 1, UserID: 10, LastSeenAt: viewNow.Add(-10 * time.Second)},
		{ID: 2, UserID: 11, LastSeenAt: viewNow.Add(-31 * time.Second)},
	}

	rv := Project(room, players, 0, viewNow)
	if !rv.Players[0].Online {
		t.Errorf("player seen 10s ago should be online")
	}
	if rv.Players[1].Online {
		t.Errorf("player seen 31s ago should be offline")
	}
	if rv.Players[0].State == nil || len(rv.Players[0].State) != 0 {
		t.Errorf("nil state should project as an empty document")
	}
}
