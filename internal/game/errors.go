package game

import "errors"

// Protocol errors. All of these are reported back to the offending
// connection as a structured error event and leave session state
// untouched.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrBadPhase        = errors.New("action not allowed in current phase")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrBadRole         = errors.New("invalid role")
	ErrRoleTaken       = errors.New("role already taken")
	ErrRoleAssigned    = errors.New("role already assigned")
	ErrNotPrey         = errors.New("only the prey selects the headstart")
	ErrBadHeadstart    = errors.New("headstart must be 2, 3 or 4")
	ErrBadAnswer       = errors.New("answer index out of range")
	ErrRejoinFailed    = errors.New("rejoin failed")
	ErrCodeSpaceBusy   = errors.New("could not allocate a room code")
	ErrSpectatorAction = errors.New("spectators cannot act")
)
