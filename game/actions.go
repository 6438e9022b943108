package game

import "github.com/wfunc/partybox/models"

// PlayCardAction plays one card from the acting player's hand.
type PlayCardAction struct {
	Card int
}

func (PlayCardAction) Game() string { return models.SlugReadMyMind }

// SuitGuessAction submits a guess at the acting player's secret suit.
type SuitGuessAction struct {
	Suit string
}

func (SuitGuessAction) Game() string { return models.SlugConfinamento }

// NumberGuessAction submits a 0-100 guess for the current round.
type NumberGuessAction struct {
	Value int
}

func (NumberGuessAction) Game() string { return models.SlugBeleza }

// MoveAction records the acting player's choice for the current turn:
// move in a direction, stay, or step back to the previous cell.
type MoveAction struct {
	Action    string
	Direction string
}

func (MoveAction) Game() string { return models.SlugSugoroku }

// UnlockAction casts an unlock vote for the acting player's cell.
type UnlockAction struct{}

func (UnlockAction) Game() string { return models.SlugSugoroku }

// PenaltyChoiceAction assigns a pending cell penalty to a target
// player. Only the opener of the penalty may choose.
type PenaltyChoiceAction struct {
	TargetPlayerID int64
}

func (PenaltyChoiceAction) Game() string { return models.SlugSugoroku }

// BidAction raises (or re-affirms) the acting player's sealed bid.
type BidAction struct {
	Amount int
}

func (BidAction) Game() string { return models.SlugLeilao }
