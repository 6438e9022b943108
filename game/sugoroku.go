package game

import (
	"sort"
	"time"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
)

const (
	sugorokuSize           = 5
	sugorokuTurns          = 15
	sugorokuStartPoints    = 15
	sugorokuUnlockRequired = 2
	sugorokuTurn           = 60 * time.Second
	sugorokuPhaseChoice    = "choice"
)

var sugorokuDirections = []string{"N", "S", "W", "E"}

// Sugoroku is the grid maze: every turn each compass exit of an
// occupied cell gets a dice capacity, players pick a move privately,
// and overflow movers are locked in place until voted free.
type Sugoroku struct{}

func (g *Sugoroku) Slug() string { return models.SlugSugoroku }

func (g *Sugoroku) Descriptor() Descriptor {
	return Descriptor{
		Slug:        models.SlugSugoroku,
		Name:        "Future Sugoroku",
		Description: "Escape the 5x5 maze through capacity-limited doors.",
		MinPlayers:  2,
		MaxPlayers:  8,
	}
}

func neighbors(c models.Coord) map[string]models.Coord {
	x, y := c[0], c[1]
	return map[string]models.Coord{
		"N": {x, y - 1},
		"S": {x, y + 1},
		"W": {x - 1, y},
		"E": {x + 1, y},
	}
}

func inBounds(c models.Coord) bool {
	return c[0] >= 0 && c[0] < sugorokuSize && c[1] >= 0 && c[1] < sugorokuSize
}

func parseCoordKey(key string) models.Coord {
	var x, y int
	for i := 0; i < len(key); i++ {
		if key[i] == ',' {
			x = atoiLoose(key[:i])
			y = atoiLoose(key[i+1:])
			break
		}
	}
	return models.Coord{x, y}
}

func atoiLoose(s string) int {
	n := 0
	neg := false
	for i := 0; i < len(s); i++ {
		if i == 0 && s[i] == '-' {
			neg = true
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

func (g *Sugoroku) Initialize(env *Env, room *models.Room, players []*models.Player) error {
	exit := models.Coord{env.RNG.Intn(sugorokuSize), env.RNG.Intn(sugorokuSize)}
	if exit == (models.Coord{0, 0}) {
		exit = models.Coord{sugorokuSize - 1, sugorokuSize - 1}
	}

	penalties := map[string]int{}
	for i := 0; i < 5; i++ {
		coord := models.Coord{env.RNG.Intn(sugorokuSize), env.RNG.Intn(sugorokuSize)}
		if coord == (models.Coord{0, 0}) {
			continue
		}
		penalties[coord.Key()] = env.RNG.Between(1, 3)
	}

	for _, p := range players {
		p.State = &models.SugorokuPlayerState{
			Position: models.Coord{0, 0},
			Points:   sugorokuStartPoints,
		}
	}

	room.State = &models.SugorokuState{
		Game:             models.SlugSugoroku,
		Turn:             1,
		MaxTurns:         sugorokuTurns,
		Exit:             exit,
		Penalties:        penalties,
		PendingPenalties: map[string]*models.PendingPenalty{},
		Dice:             map[string]map[string]int{},
		LockedRooms:      map[string]*models.LockInfo{},
		Phase:            sugorokuPhaseChoice,
		Winners:          []int64{},
		Losers:           []int64{},
	}
	return nil
}

// activeSugoroku filters to players neither eliminated nor cleared.
func activeSugoroku(players []*models.Player) []*models.Player {
	out := make([]*models.Player, 0, len(players))
	for _, p := range players {
		ps, ok := p.State.(*models.SugorokuPlayerState)
		if ok && !ps.Eliminated && !ps.Cleared {
			out = append(out, p)
		}
	}
	return out
}

func (g *Sugoroku) Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error {
	state, ok := room.State.(*models.SugorokuState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	switch a := act.(type) {
	case MoveAction:
		return g.applyMove(env, room, players, actor, state, a)
	case UnlockAction:
		return g.applyUnlock(actor, state)
	case PenaltyChoiceAction:
		return g.applyPenaltyChoice(players, actor, state, a)
	default:
		return NewError(KindActionNotLegalInPhase, "unsupported action for %s", g.Slug())
	}
}

func (g *Sugoroku) applyMove(env *Env, room *models.Room, players []*models.Player, actor *models.Player, state *models.SugorokuState, a MoveAction) error {
	switch a.Action {
	case "move":
		valid := false
		for _, d := range sugorokuDirections {
			if a.Direction == d {
				valid = true
			}
		}
		if !valid {
			return NewError(KindValidationError, "unknown direction %q", a.Direction)
		}
	case "stay", "back":
	default:
		return NewError(KindValidationError, "unknown action %q", a.Action)
	}
	ps, ok := actor.State.(*models.SugorokuPlayerState)
	if !ok || ps.Eliminated || ps.Cleared {
		return NewError(KindPlayerEliminated, "player inactive")
	}
	choice := &models.SugorokuChoice{Action: a.Action}
	if a.Action == "move" {
		choice.Direction = a.Direction
	}
	ps.Choice = choice

	// A choice that completes the turn's inputs resolves immediately.
	if len(state.Dice) > 0 {
		g.tickResolve(env, room, players, state)
	}
	return nil
}

func (g *Sugoroku) applyUnlock(actor *models.Player, state *models.SugorokuState) error {
	ps, ok := actor.State.(*models.SugorokuPlayerState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	key := ps.Position.Key()
	info := state.LockedRooms[key]
	if info == nil {
		info = &models.LockInfo{}
		state.LockedRooms[key] = info
	}
	info.Unlockers = appendUniqueID(info.Unlockers, actor.ID)
	return nil
}

func (g *Sugoroku) applyPenaltyChoice(players []*models.Player, actor *models.Player, state *models.SugorokuState, a PenaltyChoiceAction) error {
	var target *models.Player
	for _, p := range players {
		if p.ID == a.TargetPlayerID {
			target = p
		}
	}
	if target == nil {
		return NewError(KindValidationError, "target not in room")
	}
	targetState, ok := target.State.(*models.SugorokuPlayerState)
	if !ok {
		return NewError(KindActionNotLegalInPhase, "game not started")
	}
	for key, info := range state.PendingPenalties {
		if info.OpenerID != nil && *info.OpenerID != actor.ID {
			continue
		}
		if containsID(info.PlayerIDs, a.TargetPlayerID) {
			targetState.Points -= info.Amount
			delete(state.PendingPenalties, key)
			return nil
		}
	}
	return NewError(KindValidationError, "no pending penalty for target")
}

// roll assigns a 1-6 capacity to every in-bounds exit of each occupied
// cell and opens the choice window.
func (g *Sugoroku) roll(env *Env, players []*models.Player, state *models.SugorokuState) {
	occupied := occupiedCells(players)
	dice := map[string]map[string]int{}
	for key := range occupied {
		coord := parseCoordKey(key)
		cellDice := map[string]int{}
		for _, dir := range sugorokuDirections {
			if inBounds(neighbors(coord)[dir]) {
				cellDice[dir] = env.RNG.Between(1, 6)
			}
		}
		dice[key] = cellDice
	}
	state.Dice = dice
	state.Phase = sugorokuPhaseChoice
	ts := clock.Timestamp(env.Clock.Now().Add(sugorokuTurn))
	state.DeadlineTS = &ts
}

func occupiedCells(players []*models.Player) map[string][]*models.Player {
	cells := map[string][]*models.Player{}
	for _, p := range activeSugoroku(players) {
		key := p.State.(*models.SugorokuPlayerState).Position.Key()
		cells[key] = append(cells[key], p)
	}
	return cells
}

// Tick rolls a fresh turn if none is pending, otherwise resolves the
// turn once the deadline passes or every eligible player has chosen.
func (g *Sugoroku) Tick(env *Env, room *models.Room, players []*models.Player) error {
	if room.Status != models.StatusLive {
		return nil
	}
	state, ok := room.State.(*models.SugorokuState)
	if !ok {
		return nil
	}
	if len(state.Dice) == 0 {
		g.roll(env, players, state)
		return nil
	}
	g.tickResolve(env, room, players, state)
	return nil
}

func (g *Sugoroku) tickResolve(env *Env, room *models.Room, players []*models.Player, state *models.SugorokuState) {
	allReady := true
	for _, p := range activeSugoroku(players) {
		ps := p.State.(*models.SugorokuPlayerState)
		if ps.Locked {
			continue
		}
		if ps.Choice == nil {
			allReady = false
			break
		}
	}
	now := clock.Timestamp(env.Clock.Now())
	if state.DeadlineTS != nil && now < *state.DeadlineTS && !allReady {
		return
	}
	g.resolve(env, room, players, state)
}

func (g *Sugoroku) resolve(env *Env, room *models.Room, players []*models.Player, state *models.SugorokuState) {
	// A pending penalty whose opener never chose is charged to the
	// opener after a full turn.
	g.applyStalePenalties(players, state)

	penaltyEntries := map[string][]int64{}
	cells := occupiedCells(players)

	cellKeys := make([]string, 0, len(cells))
	for key := range cells {
		cellKeys = append(cellKeys, key)
	}
	sort.Strings(cellKeys)

	for _, key := range cellKeys {
		occupants := cells[key]
		cellDice := state.Dice[key]
		unlocked := false
		if info := state.LockedRooms[key]; info != nil {
			unlocked = len(info.Unlockers) >= sugorokuUnlockRequired
		}

		movers := map[string][]*models.Player{}
		var stayers, backers []*models.Player
		for _, p := range occupants {
			ps := p.State.(*models.SugorokuPlayerState)
			if ps.Locked && !unlocked {
				stayers = append(stayers, p)
				continue
			}
			switch {
			case ps.Choice == nil:
				stayers = append(stayers, p)
			case ps.Choice.Action == "stay":
				stayers = append(stayers, p)
			case ps.Choice.Action == "back":
				backers = append(backers, p)
			default:
				dir := ps.Choice.Direction
				if _, ok := cellDice[dir]; ok {
					movers[dir] = append(movers[dir], p)
				} else {
					stayers = append(stayers, p)
				}
			}
		}

		coord := parseCoordKey(key)
		for _, dir := range sugorokuDirections {
			group := movers[dir]
			if len(group) == 0 {
				continue
			}
			capacity := cellDice[dir]
			sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
			allowed := group
			if capacity < len(group) {
				allowed = group[:capacity]
			}
			target := neighbors(coord)[dir]
			for _, p := range allowed {
				ps := p.State.(*models.SugorokuPlayerState)
				prev := coord
				ps.PrevPosition = &prev
				ps.Position = target
				ps.Points--
				ps.Locked = false
				ps.CanBack = false
				ps.Choice = nil
				if _, hit := state.Penalties[target.Key()]; hit {
					penaltyEntries[target.Key()] = append(penaltyEntries[target.Key()], p.ID)
				}
			}
			for _, p := range group[min(capacity, len(group)):] {
				ps := p.State.(*models.SugorokuPlayerState)
				ps.Points--
				ps.Locked = true
				ps.Choice = nil
				if state.LockedRooms[key] == nil {
					state.LockedRooms[key] = &models.LockInfo{}
				}
			}
		}

		for _, p := range stayers {
			ps := p.State.(*models.SugorokuPlayerState)
			ps.Points--
			if !ps.Locked {
				ps.CanBack = true
			}
			ps.Choice = nil
		}

		for _, p := range backers {
			ps := p.State.(*models.SugorokuPlayerState)
			if ps.CanBack {
				if ps.PrevPosition != nil {
					ps.Position = *ps.PrevPosition
					ps.Points--
				}
				ps.CanBack = false
			} else {
				// Treated as a stay.
				ps.Points--
				ps.CanBack = true
			}
			ps.Choice = nil
		}

		state.LockedRooms[key] = &models.LockInfo{Unlockers: []int64{}}
	}

	// Penalties, exit and elimination checks over every player.
	for _, p := range players {
		ps, ok := p.State.(*models.SugorokuPlayerState)
		if !ok || ps.Eliminated || ps.Cleared {
			continue
		}
		key := ps.Position.Key()
		if amount, hit := state.Penalties[key]; hit {
			info := state.PendingPenalties[key]
			if info == nil {
				info = &models.PendingPenalty{Amount: amount, Turn: state.Turn}
				state.PendingPenalties[key] = info
			}
			info.Amount = amount
			info.PlayerIDs = appendUniqueID(info.PlayerIDs, p.ID)
			if info.OpenerID == nil {
				if entries := penaltyEntries[key]; len(entries) > 0 {
					opener := entries[0]
					info.OpenerID = &opener
				}
			}
		}
		if ps.Position == state.Exit {
			ps.Cleared = true
			state.Winners = appendUniqueID(state.Winners, p.ID)
		}
		if ps.Points <= 0 {
			ps.Eliminated = true
			state.Losers = appendUniqueID(state.Losers, p.ID)
		}
	}

	// A penalty with a single pending occupant applies automatically.
	for key, info := range state.PendingPenalties {
		if len(info.PlayerIDs) != 1 {
			continue
		}
		if target := playerByID(players, info.PlayerIDs[0]); target != nil {
			if ps, ok := target.State.(*models.SugorokuPlayerState); ok {
				ps.Points -= info.Amount
			}
			delete(state.PendingPenalties, key)
		}
	}

	state.Dice = map[string]map[string]int{}
	state.Phase = sugorokuPhaseChoice
	state.DeadlineTS = nil

	state.Turn++
	if state.Turn > state.MaxTurns {
		for _, p := range activeSugoroku(players) {
			ps := p.State.(*models.SugorokuPlayerState)
			ps.Eliminated = true
			state.Losers = appendUniqueID(state.Losers, p.ID)
		}
		room.Status = models.StatusEnded
	}
	if len(activeSugoroku(players)) == 0 {
		room.Status = models.StatusEnded
	}
}

func (g *Sugoroku) applyStalePenalties(players []*models.Player, state *models.SugorokuState) {
	for key, info := range state.PendingPenalties {
		if info.Turn >= state.Turn {
			continue
		}
		var targetID int64
		if info.OpenerID != nil {
			targetID = *info.OpenerID
		} else if len(info.PlayerIDs) > 0 {
			targetID = info.PlayerIDs[0]
		} else {
			delete(state.PendingPenalties, key)
			continue
		}
		if target := playerByID(players, targetID); target != nil {
			if ps, ok := target.State.(*models.SugorokuPlayerState); ok {
				ps.Points -= info.Amount
			}
		}
		delete(state.PendingPenalties, key)
	}
}

func playerByID(players []*models.Player, id int64) *models.Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
