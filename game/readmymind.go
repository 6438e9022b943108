package game

import (
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

const (
	readMyMindMin         = 1
	readMyMindMax         = 100
	readMyMindRoundTarget = 10
	readMyMindLives       = 3
	readMyMindTurn        = 60 * time.Second
)

const (
	ModeCoop   = "coop"
	ModeVersus = "versus"
)

// ReadMyMind is the co-op / versus sequencing game: each round deals
// hidden numbers and players must play them in globally ascending
// order.
type ReadMyMind struct{}

func (g *ReadMyMind) Slug() string { return models.SlugReadMyMind }

func (g *ReadMyMind) Descriptor() Descriptor {
	return Descriptor{
		Slug:        models.SlugReadMyMind,
		Name:        "Read My Mind",
		Description: "Play your numbers in ascending order without talking.",
		MinPlayers:  1,
		MaxPlayers:  8,
	}
}

func (g *ReadMyMind) Initialize(env *Env, room *models.Room, players []*models.Player) error {
	mode := ""
	if prev, ok := room.State.(*models.ReadMyMindState); ok {
		mode = prev.Mode
	}
	if mode != ModeCoop && mode != ModeVersus {
		return NewError(KindPreconditionFailed, "mode required for Read My Mind")
	}

	var lives *int
	if mode == ModeCoop {
		v := readMyMindLives
		lives = &v
	}
	now := env.Clock.Now()
	room.State = &models.ReadMyMindState{
		Game:       models.SlugReadMyMind,
		Mode:       mode,
		Round:      1,
		Lives:      lives,
		Played:     []models.PlayedCard{},
		DeadlineTS: clock.Timestamp(now.Add(readMyMindTurn)),
	}
	for _, p := range players {
		p.State = &models.ReadMyMindPlayerState{Eliminated: false, Hand: []int{}}
	}
	return g.deal(env, players, 1)
}

// deal hands out round*len(players) distinct cards from [1, 100],
// disjoint across hands.
func (g *ReadMyMind) deal(env *Env, players []*models.Player, round int) error {
	if len(players) == 0 {
		return nil
	}
	total := round * len(players)
	deck, err := env.RNG.Sample(readMyMindMin, readMyMindMax, total)
	if err != nil {
		return NewError(KindValidationError, "deck exhausted: %v", err)
	}
	idx := 0
	for _, p := range players {
		ps, ok := p.State.(*models.ReadMyMindPlayerState)
		if !ok {
			ps = &models.ReadMyMindPlayerState{}
			p.State = ps
		}
		ps.Hand = append([]int{}, deck[idx:idx+round]...)
		ps.Eliminated = false
		idx += round
	}
	return nil
}

func (g *ReadMyMind) Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error {
	play, ok := act.(PlayCardAction)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "unsupported action for %s", g.Slug())
	}
	if play.Card < readMyMindMin || play.Card > readMyMindMax {
		return NewError(KindValidationError, "card out of range")
	}

	// Deadline expiry resolves first; the pending play may arrive at a
	// room that just ended.
	if err := g.Tick(env, room, players); err != nil {
		return err
	}
	if room.Status != models.StatusLive {
		return nil
	}
	return g.applyPlay(env, room, players, actor, play.Card)
}

func (g *ReadMyMind) applyPlay(env *Env, room *models.Room, players []*models.Player, actor *models.Player, card int) error {
	state, ok := room.State.(*models.ReadMyMindState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	actorState, ok := actor.State.(*models.ReadMyMindPlayerState)
	if !ok || actorState.Eliminated {
		return ErrPlayerEliminated()
	}

	pos := indexOf(actorState.Hand, card)
	if pos < 0 {
		return NewError(KindValidationError, "card not in hand")
	}

	active := ActivePlayers(players)
	minCard := 0
	haveCards := false
	for _, p := range active {
		for _, c := range p.State.(*models.ReadMyMindPlayerState).Hand {
			if !haveCards || c < minCard {
				minCard = c
				haveCards = true
			}
		}
	}
	if !haveCards {
		return NewError(KindValidationError, "no cards available")
	}
	isCut := card != minCard

	actorState.Hand = append(actorState.Hand[:pos], actorState.Hand[pos+1:]...)
	now := env.Clock.Now()
	state.Played = append(state.Played, models.PlayedCard{
		PlayerID: actor.ID,
		Card:     card,
		TS:       clock.Timestamp(now),
	})

	if isCut {
		if state.Mode == ModeCoop {
			// Wrong card returns to the player's hand in co-op.
			actorState.Hand = append(actorState.Hand, card)
			g.loseLife(state, room)
		} else {
			g.cutVersus(room, players, actor, minCard)
		}
	}

	if room.Status == models.StatusLive {
		if err := g.advanceRound(env, room, players, state); err != nil {
			return err
		}
	}

	state.DeadlineTS = clock.Timestamp(now.Add(readMyMindTurn))
	ts := clock.Timestamp(now)
	state.LastPlayTS = &ts
	return nil
}

func (g *ReadMyMind) loseLife(state *models.ReadMyMindState, room *models.Room) {
	lives := readMyMindLives
	if state.Lives != nil {
		lives = *state.Lives
	}
	lives--
	floored := max(lives, 0)
	state.Lives = &floored
	if lives <= 0 {
		room.Status = models.StatusEnded
	}
}

// cutVersus eliminates the cutter and, while more than two players are
// still in, whichever active player holds the global minimum card.
func (g *ReadMyMind) cutVersus(room *models.Room, players []*models.Player, actor *models.Player, minCard int) {
	active := ActivePlayers(players)
	var victim *models.Player
	for _, p := range active {
		if indexOf(p.State.(*models.ReadMyMindPlayerState).Hand, minCard) >= 0 {
			victim = p
			break
		}
	}
	eliminated := []*models.Player{actor}
	if len(active) > 2 && victim != nil {
		eliminated = append(eliminated, victim)
	}
	for _, p := range eliminated {
		ps := p.State.(*models.ReadMyMindPlayerState)
		ps.Eliminated = true
		ps.Hand = []int{}
	}
	if len(ActivePlayers(players)) <= 1 {
		room.Status = models.StatusEnded
	}
}

// advanceRound deals the next round once every active hand is empty,
// or ends the room past the round target.
func (g *ReadMyMind) advanceRound(env *Env, room *models.Room, players []*models.Player, state *models.ReadMyMindState) error {
	active := ActivePlayers(players)
	for _, p := range active {
		if len(p.State.(*models.ReadMyMindPlayerState).Hand) > 0 {
			return nil
		}
	}
	next := state.Round + 1
	if next > readMyMindRoundTarget {
		room.Status = models.StatusEnded
		return nil
	}
	state.Round = next
	return g.deal(env, active, next)
}

// Tick applies the deadline default: co-op loses a life, versus
// eliminates one random active player. No-op before the deadline.
func (g *ReadMyMind) Tick(env *Env, room *models.Room, players []*models.Player) error {
	if room.Status != models.StatusLive {
		return nil
	}
	state, ok := room.State.(*models.ReadMyMindState)
	if !ok {
		return nil
	}
	now := env.Clock.Now()
	if state.DeadlineTS == 0 || clock.Timestamp(now) <= state.DeadlineTS {
		return nil
	}
	active := ActivePlayers(players)
	if len(active) == 0 {
		return nil
	}

	if state.Mode == ModeCoop {
		g.loseLife(state, room)
	} else {
		victim := active[env.RNG.Intn(len(active))]
		ps := victim.State.(*models.ReadMyMindPlayerState)
		ps.Eliminated = true
		ps.Hand = []int{}
		if len(ActivePlayers(players)) <= 1 {
			room.Status = models.StatusEnded
		}
	}
	state.DeadlineTS = clock.Timestamp(now.Add(readMyMindTurn))
	return nil
}

func indexOf(hand []int, card int) int {
	for i, c := range hand {
		if c == card {
			return i
		}
	}
	return -1
}
