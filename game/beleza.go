package game

import (
	"math"
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

const (
	belezaThreshold     = -10
	belezaMultiplier    = 0.8
	belezaGuessWindow   = 120 * time.Second
	belezaShowdown      = 30 * time.Second
	belezaSafeStreak    = 5
	belezaPhaseGuess    = "guess"
	belezaPhaseShowdown = "showdown"
)

// Beleza is the Keynesian beauty-contest: guess 0-100, target is
// 0.8 times the mean, closest wins and everyone else bleeds points.
// Rules escalate with every lifetime elimination.
type Beleza struct{}

func (g *Beleza) Slug() string { return models.SlugBeleza }

func (g *Beleza) Descriptor() Descriptor {
	return Descriptor{
		Slug:        models.SlugBeleza,
		Name:        "Concurso de Beleza",
		Description: "Guess 0-100; closest to 80% of the mean wins the round.",
		MinPlayers:  2,
		MaxPlayers:  8,
	}
}

func (g *Beleza) Initialize(env *Env, room *models.Room, players []*models.Player) error {
	for _, p := range players {
		p.State = &models.BelezaPlayerState{Eliminated: false, Score: 0}
	}
	now := env.Clock.Now()
	room.State = &models.BelezaState{
		Game:          models.SlugBeleza,
		Round:         1,
		Eliminations:  0,
		NoLossStreak:  0,
		Multiplier:    belezaMultiplier,
		LastWinnerIDs: []int64{},
		Phase:         belezaPhaseGuess,
		DeadlineTS:    clock.Timestamp(now.Add(belezaGuessWindow)),
	}
	return nil
}

func (g *Beleza) Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error {
	guess, ok := act.(NumberGuessAction)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "unsupported action for %s", g.Slug())
	}
	if guess.Value < 0 || guess.Value > 100 {
		return NewError(KindValidationError, "guess must be between 0 and 100")
	}

	if err := g.Tick(env, room, players); err != nil {
		return err
	}
	if room.Status != models.StatusLive {
		return nil
	}
	state, ok := room.State.(*models.BelezaState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	ps, ok := actor.State.(*models.BelezaPlayerState)
	if !ok || ps.Eliminated {
		return ErrPlayerEliminated()
	}
	if state.Phase == belezaPhaseShowdown {
		return NewError(KindActionNotLegalInPhase, "showdown in progress")
	}
	v := guess.Value
	ps.Guess = &v
	g.tickPhases(env, room, players)
	return nil
}

// Tick drives the guess -> showdown -> guess phase machine off the
// stored deadlines.
func (g *Beleza) Tick(env *Env, room *models.Room, players []*models.Player) error {
	if room.Status != models.StatusLive {
		return nil
	}
	g.tickPhases(env, room, players)
	return nil
}

func (g *Beleza) tickPhases(env *Env, room *models.Room, players []*models.Player) {
	state, ok := room.State.(*models.BelezaState)
	if !ok {
		return
	}
	nowTS := clock.Timestamp(env.Clock.Now())

	switch state.Phase {
	case belezaPhaseGuess:
		active := ActivePlayers(players)
		allGuessed := len(active) > 0
		for _, p := range active {
			if p.State.(*models.BelezaPlayerState).Guess == nil {
				allGuessed = false
				break
			}
		}
		if allGuessed || (state.DeadlineTS != 0 && nowTS > state.DeadlineTS) {
			g.resolve(room, players, state)
			if room.Status == models.StatusLive {
				state.Phase = belezaPhaseShowdown
				state.DeadlineTS = nowTS + belezaShowdown.Seconds()
			}
		}
	case belezaPhaseShowdown:
		if state.DeadlineTS != 0 && nowTS > state.DeadlineTS {
			state.Phase = belezaPhaseGuess
			state.Round++
			state.DeadlineTS = nowTS + belezaGuessWindow.Seconds()
		}
	}
}

// resolve scores the round. Missing guesses count as automatic losses.
func (g *Beleza) resolve(room *models.Room, players []*models.Player, state *models.BelezaState) {
	active := ActivePlayers(players)
	if len(active) == 0 {
		return
	}

	type entry struct {
		player *models.Player
		ps     *models.BelezaPlayerState
		value  int
	}
	var entries []entry
	for _, p := range active {
		ps := p.State.(*models.BelezaPlayerState)
		if ps.Guess != nil {
			entries = append(entries, entry{p, ps, *ps.Guess})
		}
	}
	if len(entries) == 0 {
		return
	}

	sum := 0
	for _, e := range entries {
		sum += e.value
	}
	target := float64(sum) / float64(len(entries)) * belezaMultiplier
	state.LastTarget = &target

	duplicateRule := state.Eliminations >= 1
	exactRule := state.Eliminations >= 2
	zeroHundredRule := state.Eliminations >= 3

	dupes := map[int]int{}
	if duplicateRule {
		for _, e := range entries {
			dupes[e.value]++
		}
	}

	var candidates []entry
	for _, e := range entries {
		if duplicateRule && dupes[e.value] > 1 {
			continue
		}
		candidates = append(candidates, e)
	}

	var winners []entry
	if zeroHundredRule {
		zeroPresent := false
		for _, e := range candidates {
			if e.value == 0 {
				zeroPresent = true
				break
			}
		}
		if zeroPresent {
			for _, e := range candidates {
				if e.value == 100 {
					winners = append(winners, e)
				}
			}
		}
	}
	if len(winners) == 0 {
		best := math.Inf(1)
		for _, e := range candidates {
			if d := math.Abs(float64(e.value) - target); d < best {
				best = d
			}
		}
		for _, e := range candidates {
			if math.Abs(float64(e.value)-target) == best {
				winners = append(winners, e)
			}
		}
	}

	state.LastWinnerIDs = []int64{}
	state.LastWinnerID = nil
	winningIDs := map[int64]bool{}
	exactHit := false
	for _, w := range winners {
		state.LastWinnerIDs = append(state.LastWinnerIDs, w.player.ID)
		winningIDs[w.player.ID] = true
		if float64(w.value) == target {
			exactHit = true
		}
	}
	if len(winners) > 0 {
		id := winners[0].player.ID
		state.LastWinnerID = &id
	}

	penalty := -1
	if exactRule && len(winners) > 0 && exactHit {
		penalty = -2
	}

	anyLoss := len(winners) < len(active)
	for _, p := range active {
		ps := p.State.(*models.BelezaPlayerState)
		if winningIDs[p.ID] {
			ps.Guess = nil
			continue
		}
		ps.Score += penalty
		if ps.Score <= belezaThreshold {
			ps.Eliminated = true
			state.Eliminations++
		}
		ps.Guess = nil
	}

	active = ActivePlayers(players)
	if anyLoss {
		state.NoLossStreak = 0
	} else {
		state.NoLossStreak++
	}

	if state.NoLossStreak >= belezaSafeStreak || len(active) <= 1 {
		state.Winners = []int64{}
		for _, p := range active {
			state.Winners = append(state.Winners, p.ID)
		}
		room.Status = models.StatusEnded
	}
}
