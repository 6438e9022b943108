// models/states.go
package models

import "fmt"

// --- Read My Mind ---

// PlayedCard is one entry in the play log.
type PlayedCard struct {
	PlayerID int64   `json:"player_id"`
	Card     int     `json:"card"`
	TS       float64 `json:"ts"`
}

type ReadMyMindState struct {
	Game       string       `json:"game"`
	Mode       string       `json:"mode"`
	Round      int          `json:"round"`
	Lives      *int         `json:"lives"`
	Played     []PlayedCard `json:"played"`
	DeadlineTS float64      `json:"deadline_ts"`
	LastPlayTS *float64     `json:"last_play_ts"`
}

func (s *ReadMyMindState) GameSlug() string { return SlugReadMyMind }

type ReadMyMindPlayerState struct {
	Eliminated bool  `json:"eliminated"`
	Hand       []int `json:"hand"`
}

func (s *ReadMyMindPlayerState) GameSlug() string   { return SlugReadMyMind }
func (s *ReadMyMindPlayerState) IsEliminated() bool { return s.Eliminated }

// --- Confinamento ---

type ConfinamentoState struct {
	Game       string  `json:"game"`
	Round      int     `json:"round"`
	DeadlineTS float64 `json:"deadline_ts"`
	// ValetePlayerID is server-only; the view layer must never expose
	// it to players.
	ValetePlayerID int64   `json:"valete_player_id"`
	Winners        []int64 `json:"winners"`
}

func (s *ConfinamentoState) GameSlug() string { return SlugConfinamento }

type ConfinamentoPlayerState struct {
	Eliminated bool `json:"eliminated"`
	// Suit and Guess are hidden by the view layer.
	Suit  string  `json:"suit"`
	Guess *string `json:"guess"`
}

func (s *ConfinamentoPlayerState) GameSlug() string   { return SlugConfinamento }
func (s *ConfinamentoPlayerState) IsEliminated() bool { return s.Eliminated }

// --- Beleza ---

type BelezaState struct {
	Game          string   `json:"game"`
	Round         int      `json:"round"`
	Eliminations  int      `json:"eliminations"`
	NoLossStreak  int      `json:"no_loss_streak"`
	Multiplier    float64  `json:"multiplier"`
	LastTarget    *float64 `json:"last_target"`
	LastWinnerID  *int64   `json:"last_winner_id"`
	LastWinnerIDs []int64  `json:"last_winner_ids"`
	Phase         string   `json:"phase"`
	Winners       []int64  `json:"winners,omitempty"`
	DeadlineTS    float64  `json:"deadline_ts"`
}

func (s *BelezaState) GameSlug() string { return SlugBeleza }

type BelezaPlayerState struct {
	Eliminated bool `json:"eliminated"`
	Score      int  `json:"score"`
	Guess      *int `json:"guess"`
}

func (s *BelezaPlayerState) GameSlug() string   { return SlugBeleza }
func (s *BelezaPlayerState) IsEliminated() bool { return s.Eliminated }

// --- Sugoroku ---

// Coord is a grid cell, marshalled as [x, y].
type Coord [2]int

// Key renders the "x,y" form used as a map key in state documents.
func (c Coord) Key() string { return fmt.Sprintf("%d,%d", c[0], c[1]) }

// SugorokuChoice is a player's pending choice for the current turn.
type SugorokuChoice struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
}

// PendingPenalty tracks a penalty cell whose charge has not been
// assigned yet. Opener is the first player to land there this turn.
type PendingPenalty struct {
	Amount    int     `json:"amount"`
	PlayerIDs []int64 `json:"player_ids"`
	OpenerID  *int64  `json:"opener_id"`
	// Turn is the turn the penalty was registered on; used for the
	// opener-timeout fallback.
	Turn int `json:"turn"`
}

// LockInfo records unlock votes for a cell holding locked players.
type LockInfo struct {
	Unlockers []int64 `json:"unlockers"`
}

type SugorokuState struct {
	Game             string                     `json:"game"`
	Turn             int                        `json:"turn"`
	MaxTurns         int                        `json:"max_turns"`
	Exit             Coord                      `json:"exit"`
	Penalties        map[string]int             `json:"penalties"`
	PendingPenalties map[string]*PendingPenalty `json:"pending_penalties"`
	Dice             map[string]map[string]int  `json:"dice"`
	LockedRooms      map[string]*LockInfo       `json:"locked_rooms"`
	Phase            string                     `json:"phase"`
	Winners          []int64                    `json:"winners"`
	Losers           []int64                    `json:"losers"`
	DeadlineTS       *float64                   `json:"deadline_ts"`
}

func (s *SugorokuState) GameSlug() string { return SlugSugoroku }

type SugorokuPlayerState struct {
	Eliminated   bool            `json:"eliminated"`
	Cleared      bool            `json:"cleared"`
	Position     Coord           `json:"position"`
	PrevPosition *Coord          `json:"prev_position"`
	Points       int             `json:"points"`
	Locked       bool            `json:"locked"`
	CanBack      bool            `json:"can_back"`
	Choice       *SugorokuChoice `json:"choice"`
}

func (s *SugorokuPlayerState) GameSlug() string   { return SlugSugoroku }
func (s *SugorokuPlayerState) IsEliminated() bool { return s.Eliminated }

// --- Leilao ---

type LeilaoState struct {
	Game          string  `json:"game"`
	Round         int     `json:"round"`
	MaxRounds     int     `json:"max_rounds"`
	Carry         int     `json:"carry"`
	Pot           int     `json:"pot"`
	LastWinnerID  *int64  `json:"last_winner_id"`
	LastBid       *int    `json:"last_bid"`
	Phase         string  `json:"phase"`
	Winners       []int64 `json:"winners"`
	Losers        []int64 `json:"losers"`
	DeadlineTS    float64 `json:"deadline_ts"`
	SuddenDeath   bool    `json:"sudden_death"`
	TiePlayers    []int64 `json:"tie_players"`
	RoundBidTotal int     `json:"round_bid_total"`
}

func (s *LeilaoState) GameSlug() string { return SlugLeilao }

type LeilaoPlayerState struct {
	Eliminated bool `json:"eliminated"`
	Points     int  `json:"points"`
	Bid        int  `json:"bid"`
	Submitted  bool `json:"submitted"`
	Won        int  `json:"won"`
}

func (s *LeilaoPlayerState) GameSlug() string   { return SlugLeilao }
func (s *LeilaoPlayerState) IsEliminated() bool { return s.Eliminated }
