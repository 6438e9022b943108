package game

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error. All kinds are user-visible request
// failures; none are fatal and the persisted room state is untouched
// when one is returned.
type Kind string

const (
	KindInvalidGameForRoom    Kind = "invalid_game_for_room"
	KindPlayerNotInRoom       Kind = "player_not_in_room"
	KindPlayerEliminated      Kind = "player_eliminated"
	KindActionNotLegalInPhase Kind = "action_not_legal_in_phase"
	KindValidationError       Kind = "validation_error"
	KindPreconditionFailed    Kind = "precondition_failed"
	KindAllocationFailed      Kind = "allocation_failed"
)

// Error is the typed failure returned by engine calls.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an engine error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func ErrInvalidGame(slug string) error {
	return NewError(KindInvalidGameForRoom, "room is not bound to %s", slug)
}

func ErrPlayerNotInRoom() error {
	return NewError(KindPlayerNotInRoom, "player not in room")
}

func ErrPlayerEliminated() error {
	return NewError(KindPlayerEliminated, "player eliminated")
}
