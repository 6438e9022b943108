package game

import (
	"testing"
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

func startBeleza(t *testing.T, n int, seed int64) (*Env, *clock.Fake, *Beleza, *models.Room, []*models.Player) {
	t.Helper()
	env, fake := testEnv(seed)
	g := &Beleza{}
	room := testRoom(models.SlugBeleza)
	players := testPlayers(n)
	if err := g.Initialize(env, room, players); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return env, fake, g, room, players
}

func belezaScore(p *models.Player) int {
	return p.State.(*models.BelezaPlayerState).Score
}

func TestBelezaRejectsOutOfRange(t *testing.T) {
	env, _, g, room, players := startBeleza(t, 2, 3)
	if err := g.Apply(env, room, players, players[0], NumberGuessAction{Value: 101}); KindOf(err) != KindValidationError {
		t.Fatalf("expected validation_error, got %v", err)
	}
	if err := g.Apply(env, room, players, players[0], NumberGuessAction{Value: -1}); KindOf(err) != KindValidationError {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestBelezaBaseRound(t *testing.T) {
	env, _, g, room, players := startBeleza(t, 3, 3)

	// Guesses 10, 20, 90: mean 40, target 32, closest is 20.
	for i, v := range []int{10, 20, 90} {
		if err := g.Apply(env, room, players, players[i], NumberGuessAction{Value: v}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	state := room.State.(*models.BelezaState)
	if state.LastTarget == nil || *state.LastTarget != 32 {
		t.Fatalf("target = %v, want 32", state.LastTarget)
	}
	if state.LastWinnerID == nil || *state.LastWinnerID != players[1].ID {
		t.Fatalf("winner = %v, want player %d", state.LastWinnerID, players[1].ID)
	}
	if belezaScore(players[1]) != 0 {
		t.Errorf("winner score = %d, want 0", belezaScore(players[1]))
	}
	if belezaScore(players[0]) != -1 || belezaScore(players[2]) != -1 {
		t.Errorf("losers should drop to -1, got %d and %d", belezaScore(players[0]), belezaScore(players[2]))
	}
	if state.Phase != belezaPhaseShowdown {
		t.Errorf("phase = %q, want showdown", state.Phase)
	}
}

func TestBelezaShowdownRejectsGuesses(t *testing.T) {
	env, fake, g, room, players := startBeleza(t, 2, 3)

	for i, v := range []int{10, 20} {
		if err := g.Apply(env, room, players, players[i], NumberGuessAction{Value: v}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	state := room.State.(*models.BelezaState)
	if state.Phase != belezaPhaseShowdown {
		t.Fatalf("phase = %q, want showdown", state.Phase)
	}

	err := g.Apply(env, room, players, players[0], NumberGuessAction{Value: 50})
	if KindOf(err) != KindActionNotLegalInPhase {
		t.Fatalf("expected action_not_legal_in_phase, got %v", err)
	}

	// Showdown deadline flips back to the guess phase.
	fake.Advance(belezaShowdown + time.Second)
	if err := g.Tick(env, room, players); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if state.Phase != belezaPhaseGuess {
		t.Errorf("phase = %q, want guess", state.Phase)
	}
	if state.Round != 2 {
		t.Errorf("round = %d, want 2", state.Round)
	}
}

func TestBelezaDuplicateRule(t *testing.T) {
	env, _, g, room, players := startBeleza(t, 3, 3)
	state := room.State.(*models.BelezaState)
	state.Eliminations = 1

	// Two duplicate 40s are disqualified; the lone 90 wins despite the
	// distance.
	for i, v := range []int{40, 40, 90} {
		if err := g.Apply(env, room, players, players[i], NumberGuessAction{Value: v}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	if state.LastWinnerID == nil || *state.LastWinnerID != players[2].ID {
		t.Fatalf("winner = %v, want player %d", state.LastWinnerID, players[2].ID)
	}
	if belezaScore(players[0]) != -1 || belezaScore(players[1]) != -1 {
		t.Error("disqualified duplicates must take the round penalty")
	}
}

func TestBelezaZeroHundredRule(t *testing.T) {
	env, _, g, room, players := startBeleza(t, 3, 3)
	state := room.State.(*models.BelezaState)
	state.Eliminations = 3

	// With a 0 on the table, 100 beats everything.
	for i, v := range []int{0, 100, 30} {
		if err := g.Apply(env, room, players, players[i], NumberGuessAction{Value: v}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	if len(state.LastWinnerIDs) != 1 || state.LastWinnerIDs[0] != players[1].ID {
		t.Fatalf("winners = %v, want the 100 guesser", state.LastWinnerIDs)
	}
}

func TestBelezaEliminationAtThreshold(t *testing.T) {
	env, _, g, room, players := startBeleza(t, 3, 3)
	state := room.State.(*models.BelezaState)
	players[2].State.(*models.BelezaPlayerState).Score = belezaThreshold + 1

	for i, v := range []int{10, 20, 90} {
		if err := g.Apply(env, room, players, players[i], NumberGuessAction{Value: v}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	if !players[2].State.(*models.BelezaPlayerState).Eliminated {
		t.Fatal("score at threshold should eliminate")
	}
	if state.Eliminations != 1 {
		t.Errorf("eliminations = %d, want 1", state.Eliminations)
	}
}

func TestBelezaSafeStreakEndsGame(t *testing.T) {
	env, fake, g, room, players := startBeleza(t, 2, 3)
	state := room.State.(*models.BelezaState)

	for round := 0; round < belezaSafeStreak; round++ {
		// Identical guesses tie both players as winners; nobody loses.
		for _, p := range players {
			if err := g.Apply(env, room, players, p, NumberGuessAction{Value: 40}); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
		}
		if room.Status == models.StatusEnded {
			break
		}
		fake.Advance(belezaShowdown + time.Second)
		if err := g.Tick(env, room, players); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}

	if room.Status != models.StatusEnded {
		t.Fatalf("five safe rounds should end the game, status = %s", room.Status)
	}
	if len(state.Winners) != 2 {
		t.Errorf("winners = %v, want both survivors", state.Winners)
	}
}
