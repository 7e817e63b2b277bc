package game

import "errors"

// ErrorKind is the machine-readable code sent to clients with an error
type ErrorKind string

const (
	KindRoomNotFound             ErrorKind = "room_not_found"
	KindGameAlreadyStarted       ErrorKind = "game_already_started"
	KindInsufficientPlayers      ErrorKind = "insufficient_players"
	KindNotHost                  ErrorKind = "not_host"
	KindWrongPhase               ErrorKind = "wrong_phase"
	KindUnknownPlayer            ErrorKind = "unknown_player"
	KindDuplicateSubmission      ErrorKind = "duplicate_submission"
	KindIncompleteProfile        ErrorKind = "incomplete_profile"
	KindIncompleteItemSubmission ErrorKind = "incomplete_item_submission"
	KindInvalidName              ErrorKind = "invalid_name"
	KindRoomFull                 ErrorKind = "room_full"
	KindInvalidTarget            ErrorKind = "invalid_target"
	KindRoleMismatch             ErrorKind = "role_mismatch"
	KindAlreadySeated            ErrorKind = "already_seated"
	KindBadPayload               ErrorKind = "bad_payload"
	KindInternal                 ErrorKind = "internal"
)

// Custom errors
var (
	ErrRoomNotFound             = &GameError{KindRoomNotFound, "room not found"}
	ErrGameAlreadyStarted       = &GameError{KindGameAlreadyStarted, "game already started"}
	ErrInsufficientPlayers      = &GameError{KindInsufficientPlayers, "need at least 4 connected players to start"}
	ErrNotHost                  = &GameError{KindNotHost, "only the host can do that"}
	ErrWrongPhase               = &GameError{KindWrongPhase, "not allowed in the current phase"}
	ErrUnknownPlayer            = &GameError{KindUnknownPlayer, "player not found in this room"}
	ErrDuplicateSubmission      = &GameError{KindDuplicateSubmission, "already submitted this round"}
	ErrIncompleteProfile        = &GameError{KindIncompleteProfile, "every profile field is required"}
	ErrIncompleteItemSubmission = &GameError{KindIncompleteItemSubmission, "an item and three clues are required"}
	ErrInvalidName              = &GameError{KindInvalidName, "name must be 1-24 characters"}
	ErrRoomFull                 = &GameError{KindRoomFull, "room is full"}
	ErrInvalidTarget            = &GameError{KindInvalidTarget, "target is not playing in this room"}
	ErrRoleMismatch             = &GameError{KindRoleMismatch, "your role cannot do that"}
	ErrAlreadySeated            = &GameError{KindAlreadySeated, "already seated in this room"}
	ErrBadPayload               = &GameError{KindBadPayload, "malformed request"}
)

type GameError struct {
	Kind    ErrorKind
	message string
}

func (e *GameError) Error() string {
	return e.message
}

// KindOf returns the kind of a game error anywhere in err's chain
func KindOf(err error) ErrorKind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}
