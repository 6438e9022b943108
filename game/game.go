package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/models"
	"github.com/wfunc/partybox/rng"
)

// Env carries the leaf dependencies every module call runs against.
// The engine itself holds no state between calls; everything lives in
// the room and player documents.
type Env struct {
	RNG   rng.Source
	Clock clock.Clock
	Log   *zap.SugaredLogger
}

// Action is a game-specific player input. Game returns the slug of the
// module the action belongs to, so the orchestrator can reject actions
// aimed at the wrong game.
type Action interface {
	Game() string
}

// Module is the common contract every game implements.
//
// Initialize is called exactly once on room start with all current
// players, and must reset every player document.
//
// Apply validates the action against phase, elimination and ownership
// rules, mutates only what the action requires, and attempts round
// resolution if the action completes the round's inputs.
//
// Tick is idempotent: it is a no-op unless the round is resolvable or
// the deadline has passed, and is always safe on ended rooms.
// Mutations happen in place; persistence is the caller's concern.
type Module interface {
	Slug() string
	Descriptor() Descriptor
	Initialize(env *Env, room *models.Room, players []*models.Player) error
	Apply(env *Env, room *models.Room, players []*models.Player, actor *models.Player, act Action) error
	Tick(env *Env, room *models.Room, players []*models.Player) error
}

// Descriptor is the lobby-facing description of a game.
type Descriptor struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

var registry = map[string]Module{}

func register(m Module) {
	registry[m.Slug()] = m
}

// Lookup returns the module bound to slug.
func Lookup(slug string) (Module, bool) {
	m, ok := registry[slug]
	return m, ok
}

// Descriptors lists all registered games, ordered by name.
func Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, m := range registry {
		out = append(out, m.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func init() {
	register(&ReadMyMind{})
	register(&Confinamento{})
	register(&Beleza{})
	register(&Sugoroku{})
	register(&Leilao{})
}

// ActivePlayers filters to players whose document exists and is not
// flagged eliminated. Resolution always recomputes this set before
// deciding outcomes.
func ActivePlayers(players []*models.Player) []*models.Player {
	out := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.State != nil && !p.State.IsEliminated() {
			out = append(out, p)
		}
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func appendUniqueID(ids []int64, id int64) []int64 {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}
