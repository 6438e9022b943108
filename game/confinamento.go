package game

import (
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

const confinamentoTurn = 120 * time.Second

// ConfinamentoSuits are the four secret suits dealt each round.
var ConfinamentoSuits = []string{"hearts", "diamonds", "clubs", "spades"}

// Confinamento is the hidden-suit elimination game. One player is
// secretly the valete; the win condition hinges on whether the valete
// survives.
type Confinamento struct{}

func (g *Confinamento) Slug() string { return models.SlugConfinamento }

func (g *Confinamento) Descriptor() Descriptor {
	return Descriptor{
		Slug:        models.SlugConfinamento,
		Name:        "Confinamento Solitário",
		Description: "Guess your own secret suit; outlive the valete or be it.",
		MinPlayers:  2,
		MaxPlayers:  8,
	}
}

func (g *Confinamento) Initialize(env *Env, room *models.Room, players []*models.Player) error {
	if len(players) == 0 {
		return NewError(KindPreconditionFailed, "no players to initialize")
	}
	for _, p := range players {
		p.State = &models.ConfinamentoPlayerState{
			Eliminated: false,
			Suit:       ConfinamentoSuits[env.RNG.Intn(len(ConfinamentoSuits))],
		}
	}
	valete := players[env.RNG.Intn(len(players))]
	now := env.Clock.Now()
	room.State = &models.ConfinamentoState{
		Game:           models.SlugConfinamento,
		Round:          1,
		DeadlineTS:     clock.Timestamp(now.Add(confinamentoTurn)),
		ValetePlayerID: valete.ID,
		Winners:        []int64{},
	}
	return nil
}

func (g *Confinamento) Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error {
	guess, ok := act.(SuitGuessAction)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "unsupported action for %s", g.Slug())
	}
	if !validSuit(guess.Suit) {
		return NewError(KindValidationError, "unknown suit %q", guess.Suit)
	}

	if err := g.Tick(env, room, players); err != nil {
		return err
	}
	if room.Status != models.StatusLive {
		return nil
	}

	ps, ok := actor.State.(*models.ConfinamentoPlayerState)
	if !ok || ps.Eliminated {
		return ErrPlayerEliminated()
	}
	suit := guess.Suit
	ps.Guess = &suit
	g.resolve(env, room, players, false)
	return nil
}

// resolve runs once every active player has guessed, or immediately
// when forced; missing guesses count as wrong.
func (g *Confinamento) resolve(env *Env, room *models.Room, players []*models.Player, force bool) {
	state, ok := room.State.(*models.ConfinamentoState)
	if !ok || room.Status != models.StatusLive {
		return
	}
	active := ActivePlayers(players)
	if len(active) == 0 {
		return
	}
	if !force {
		for _, p := range active {
			if p.State.(*models.ConfinamentoPlayerState).Guess == nil {
				return
			}
		}
	}

	for _, p := range active {
		ps := p.State.(*models.ConfinamentoPlayerState)
		if ps.Guess == nil || *ps.Guess != ps.Suit {
			ps.Eliminated = true
		}
		ps.Guess = nil
	}

	active = ActivePlayers(players)
	valeteAlive := false
	for _, p := range active {
		if p.ID == state.ValetePlayerID {
			valeteAlive = true
		}
	}

	switch {
	case !valeteAlive:
		// Everyone who outlived the valete wins.
		state.Winners = []int64{}
		for _, p := range active {
			state.Winners = append(state.Winners, p.ID)
		}
		room.Status = models.StatusEnded
	case len(active) == 1:
		// Sole survivor is the valete.
		state.Winners = []int64{state.ValetePlayerID}
		room.Status = models.StatusEnded
	default:
		state.Round++
		for _, p := range active {
			ps := p.State.(*models.ConfinamentoPlayerState)
			ps.Suit = ConfinamentoSuits[env.RNG.Intn(len(ConfinamentoSuits))]
			ps.Guess = nil
		}
	}

	state.DeadlineTS = clock.Timestamp(env.Clock.Now().Add(confinamentoTurn))
}

func (g *Confinamento) Tick(env *Env, room *models.Room, players []*models.Player) error {
	if room.Status != models.StatusLive {
		return nil
	}
	state, ok := room.State.(*models.ConfinamentoState)
	if !ok {
		return nil
	}
	if state.DeadlineTS == 0 || clock.Timestamp(env.Clock.Now()) <= state.DeadlineTS {
		return nil
	}
	g.resolve(env, room, players, true)
	return nil
}

func validSuit(s string) bool {
	for _, v := range ConfinamentoSuits {
		if v == s {
			return true
		}
	}
	return false
}
