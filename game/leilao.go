package game

import (
	"sort"
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

const (
	leilaoRounds       = 10
	leilaoBasePot      = 100
	leilaoBidWindow    = 15 * time.Second
	leilaoPhaseBidding = "bidding"
)

// Leilao is the escalating-pot sealed-bid auction. Bids are escrowed
// as they are raised; only the round winner gets the pot back, and
// excess bids carry into the next round's pot.
type Leilao struct{}

func (g *Leilao) Slug() string { return models.SlugLeilao }

func (g *Leilao) Descriptor() Descriptor {
	return Descriptor{
		Slug:        models.SlugLeilao,
		Name:        "Leilão de Cem Votos",
		Description: "Ten rounds of sealed bids over a swelling pot, then sudden death.",
		MinPlayers:  2,
		MaxPlayers:  8,
	}
}

func (g *Leilao) Initialize(env *Env, room *models.Room, players []*models.Player) error {
	for _, p := range players {
		p.State = &models.LeilaoPlayerState{
			Points: env.RNG.Between(100, 200),
		}
	}
	now := env.Clock.Now()
	room.State = &models.LeilaoState{
		Game:       models.SlugLeilao,
		Round:      1,
		MaxRounds:  leilaoRounds,
		Pot:        leilaoBasePot,
		Phase:      leilaoPhaseBidding,
		Winners:    []int64{},
		Losers:     []int64{},
		TiePlayers: []int64{},
		DeadlineTS: clock.Timestamp(now.Add(leilaoBidWindow)),
	}
	return nil
}

func (g *Leilao) Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error {
	bid, ok := act.(BidAction)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "unsupported action for %s", g.Slug())
	}
	if bid.Amount < 0 {
		return NewError(KindValidationError, "bid must be non-negative")
	}
	state, ok := room.State.(*models.LeilaoState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	ps, ok := actor.State.(*models.LeilaoPlayerState)
	if !ok || ps.Eliminated {
		return ErrPlayerEliminated()
	}
	if state.SuddenDeath && !containsID(state.TiePlayers, actor.ID) {
		return NewError(KindActionNotLegalInPhase, "only tied players can bid")
	}
	if bid.Amount < ps.Bid {
		return NewError(KindValidationError, "bid can only increase")
	}

	bidders := ActivePlayers(players)
	if state.SuddenDeath {
		filtered := bidders[:0:0]
		for _, p := range bidders {
			if containsID(state.TiePlayers, p.ID) {
				filtered = append(filtered, p)
			}
		}
		bidders = filtered
	}
	highest := 0
	for _, p := range bidders {
		if b := p.State.(*models.LeilaoPlayerState).Bid; b > highest {
			highest = b
		}
	}
	if bid.Amount != ps.Bid && bid.Amount <= highest {
		return NewError(KindValidationError, "bid must be higher than current highest")
	}
	diff := bid.Amount - ps.Bid
	if diff > 0 && ps.Points < diff {
		return NewError(KindValidationError, "not enough points")
	}

	ps.Points -= diff
	ps.Bid = bid.Amount
	ps.Submitted = true
	if diff > 0 {
		// A strict raise keeps the round open a little longer.
		state.DeadlineTS = clock.Timestamp(env.Clock.Now().Add(leilaoBidWindow))
	}
	return g.Tick(env, room, players)
}

func (g *Leilao) Tick(env *Env, room *models.Room, players []*models.Player) error {
	if room.Status != models.StatusLive {
		return nil
	}
	state, ok := room.State.(*models.LeilaoState)
	if !ok {
		return nil
	}
	force := state.DeadlineTS != 0 && clock.Timestamp(env.Clock.Now()) > state.DeadlineTS
	g.resolve(env, room, players, state, force)
	return nil
}

// resolve settles the round: the single highest bidder takes the pot,
// everyone's bid resets, and the pot carries the excess forward.
// Before round 10, equal-highest bids settle to the lowest player id.
func (g *Leilao) resolve(env *Env, room *models.Room, players []*models.Player, state *models.LeilaoState, force bool) {
	active := ActivePlayers(players)
	if state.SuddenDeath {
		filtered := active[:0:0]
		for _, p := range active {
			if containsID(state.TiePlayers, p.ID) {
				filtered = append(filtered, p)
			}
		}
		active = filtered
	}
	if len(active) == 0 {
		return
	}
	if !force {
		for _, p := range active {
			if !p.State.(*models.LeilaoPlayerState).Submitted {
				return
			}
		}
	}

	totalBid := 0
	highest := -1
	var winnerID int64
	for _, p := range active {
		b := p.State.(*models.LeilaoPlayerState).Bid
		totalBid += b
		if b > highest {
			highest = b
			winnerID = p.ID
		}
	}
	effectivePot := state.Pot
	state.RoundBidTotal += totalBid

	for _, p := range active {
		ps := p.State.(*models.LeilaoPlayerState)
		if p.ID == winnerID {
			ps.Points += effectivePot
			ps.Won += effectivePot
		}
		if ps.Points <= 0 {
			ps.Eliminated = true
			state.Losers = appendUniqueID(state.Losers, p.ID)
		}
		ps.Bid = 0
		ps.Submitted = false
	}

	carry := max(0, state.RoundBidTotal-leilaoBasePot)
	state.Carry = carry
	state.Pot = leilaoBasePot + carry
	state.LastWinnerID = &winnerID
	lastBid := highest
	state.LastBid = &lastBid
	state.RoundBidTotal = 0
	state.Winners = appendUniqueID(state.Winners, winnerID)

	now := env.Clock.Now()
	if state.SuddenDeath {
		g.resolveSuddenDeath(room, players, state, now)
		return
	}

	if state.Round >= state.MaxRounds {
		g.enterSuddenDeath(room, players, state, now)
		return
	}

	state.Round++
	state.DeadlineTS = clock.Timestamp(now.Add(leilaoBidWindow))

	if len(ActivePlayers(players)) == 0 {
		room.Status = models.StatusEnded
	}
}

// rankByPoints orders active players by points descending, id
// ascending for determinism.
func rankByPoints(players []*models.Player) []*models.Player {
	ranked := append([]*models.Player{}, players...)
	sort.Slice(ranked, func(i, j int) bool {
		pi := ranked[i].State.(*models.LeilaoPlayerState).Points
		pj := ranked[j].State.(*models.LeilaoPlayerState).Points
		if pi != pj {
			return pi > pj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

func (g *Leilao) resolveSuddenDeath(room *models.Room, players []*models.Player, state *models.LeilaoState, now time.Time) {
	remaining := ActivePlayers(players)
	if len(remaining) <= 1 {
		state.Winners = []int64{}
		for _, p := range remaining {
			state.Winners = append(state.Winners, p.ID)
		}
		room.Status = models.StatusEnded
		return
	}
	ranked := rankByPoints(remaining)
	top, second := ranked[0], ranked[1]
	if top.State.(*models.LeilaoPlayerState).Points != second.State.(*models.LeilaoPlayerState).Points {
		second.State.(*models.LeilaoPlayerState).Eliminated = true
		state.Losers = appendUniqueID(state.Losers, second.ID)
		state.Winners = []int64{top.ID}
		room.Status = models.StatusEnded
		return
	}
	// Exact tie: sudden death continues indefinitely.
	state.TiePlayers = []int64{top.ID, second.ID}
	state.DeadlineTS = clock.Timestamp(now.Add(leilaoBidWindow))
}

// enterSuddenDeath trims the field to the top two by points after the
// final round; only an exact points tie goes to sudden death.
func (g *Leilao) enterSuddenDeath(room *models.Room, players []*models.Player, state *models.LeilaoState, now time.Time) {
	remaining := ActivePlayers(players)
	if len(remaining) <= 1 {
		state.Winners = []int64{}
		for _, p := range remaining {
			state.Winners = append(state.Winners, p.ID)
		}
		room.Status = models.StatusEnded
		return
	}

	ranked := rankByPoints(remaining)
	for _, p := range ranked[2:] {
		ps := p.State.(*models.LeilaoPlayerState)
		ps.Eliminated = true
		state.Losers = appendUniqueID(state.Losers, p.ID)
	}
	state.Round = state.MaxRounds

	top, second := ranked[0], ranked[1]
	if top.State.(*models.LeilaoPlayerState).Points != second.State.(*models.LeilaoPlayerState).Points {
		second.State.(*models.LeilaoPlayerState).Eliminated = true
		state.Losers = appendUniqueID(state.Losers, second.ID)
		state.Winners = []int64{top.ID}
		room.Status = models.StatusEnded
		return
	}

	state.SuddenDeath = true
	state.TiePlayers = []int64{top.ID, second.ID}
	for _, p := range ranked[:2] {
		ps := p.State.(*models.LeilaoPlayerState)
		ps.Bid = 0
		ps.Submitted = false
	}
	state.DeadlineTS = clock.Timestamp(now.Add(leilaoBidWindow))
}
