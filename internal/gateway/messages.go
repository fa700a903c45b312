package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for actions the protocol does not name.
var ErrUnknownAction = errors.New("unknown action")

// Action identifies an inbound client message.
type Action string

const (
	ActionCreateGame      Action = "create_game"
	ActionJoinGame        Action = "join_game"
	ActionSelectRole      Action = "select_role"
	ActionSelectHeadstart Action = "select_headstart"
	ActionPlayerReady     Action = "player_ready"
	ActionSubmitAnswer    Action = "submit_answer"
	ActionPlayAgain       Action = "play_again"
	ActionRequestRematch  Action = "request_rematch"
	ActionRejoinGame      Action = "rejoin_game"
	ActionPlayerPaused    Action = "player_paused"
	ActionPlayerResumed   Action = "player_resumed"
	ActionJoinSpectator   Action = "join_as_spectator"
)

// ClientMessage is the inbound message shape. Fields beyond Action are
// action-specific; pointers distinguish an absent field from a zero
// value.
type ClientMessage struct {
	Action     Action `json:"action"`
	Code       string `json:"code,omitempty"`
	Role       string `json:"role,omitempty"`
	Headstart  *int   `json:"headstart,omitempty"`
	Answer     *int   `json:"answer,omitempty"`
	PlayerID   string `json:"player_id,omitempty"`
	Credential string `json:"credential,omitempty"`
}

// ParseClientMessage decodes an inbound frame and checks it names an
// action.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if msg.Action == "" {
		return ClientMessage{}, fmt.Errorf("client message missing action")
	}
	return msg, nil
}
