package game

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType identifies an outbound session event.
type EventType string

const (
	EventGameCreated        EventType = "game_created"
	EventGameJoined         EventType = "game_joined"
	EventPhaseChange        EventType = "phase_change"
	EventRolesUpdated       EventType = "roles_updated"
	EventGameStart          EventType = "game_start"
	EventPlayerAnswered     EventType = "player_answered"
	EventRoundResults       EventType = "round_results"
	EventWaitingForReady    EventType = "waiting_for_ready"
	EventNextQuestion       EventType = "next_question"
	EventGameOver           EventType = "game_over"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerPaused       EventType = "player_paused"
	EventPlayerResumed      EventType = "player_resumed"
	EventRematchRequested   EventType = "rematch_requested"
	EventRejoinFailed       EventType = "rejoin_failed"
	EventGameStateSync      EventType = "game_state_sync"
	EventSessionClosed      EventType = "session_closed"
	EventError              EventType = "error"
)

// Event is the envelope every outbound message travels in.
type Event struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload in an envelope. Marshalling only fails for
// types the engine never emits, so a failure is logged and the event
// carries no data rather than aborting the broadcast.
func NewEvent(code string, t EventType, payload any) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Code:      code,
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(t)).Msg("failed to marshal event payload")
			return ev
		}
		ev.Data = data
	}
	return ev
}

// Broadcaster delivers events to a room's players and spectators, or to
// a single connection. The gateway implements it; the session only holds
// the interface.
type Broadcaster interface {
	BroadcastRoom(code string, ev Event)
	SendToConn(connID string, ev Event)
}

// Positions is the pair of board positions included in game events.
type Positions struct {
	Hunter int `json:"hunter"`
	Prey   int `json:"prey"`
}

type GameCreatedPayload struct {
	Code string `json:"code"`
}

type GameJoinedPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type PhaseChangePayload struct {
	Phase Phase `json:"phase"`
}

type RolesUpdatedPayload struct {
	Players []PlayerView `json:"players"`
}

type GameStartPayload struct {
	Positions Positions    `json:"positions"`
	Question  QuestionView `json:"question"`
	Round     int          `json:"round"`
}

type PlayerAnsweredPayload struct {
	PlayerID string `json:"player_id"`
}

// PlayerResult is one player's outcome within round_results.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Role     Role   `json:"role"`
	Correct  bool   `json:"correct"`
	Answer   int    `json:"answer"`
	Position int    `json:"position"`
}

type RoundResultsPayload struct {
	Results       []PlayerResult `json:"results"`
	CorrectAnswer int            `json:"correct_answer"`
	Positions     Positions      `json:"positions"`
}

type WaitingForReadyPayload struct {
	Positions Positions `json:"positions"`
}

type NextQuestionPayload struct {
	Question  QuestionView `json:"question"`
	Positions Positions    `json:"positions"`
	Round     int          `json:"round"`
}

type GameOverPayload struct {
	Winner   Role   `json:"winner"`
	PlayerID string `json:"player_id"`
}

type PlayerPresencePayload struct {
	PlayerID string `json:"player_id"`
}

type RematchRequestedPayload struct {
	PlayerID string `json:"player_id"`
	Votes    int    `json:"votes"`
}

type RejoinFailedPayload struct {
	Message string `json:"message"`
}

// StateSyncPayload is the full snapshot pushed to a rejoining or resuming
// connection.
type StateSyncPayload struct {
	Code          string        `json:"code"`
	Phase         Phase         `json:"phase"`
	Players       []PlayerView  `json:"players"`
	You           string        `json:"you"`
	Headstart     int           `json:"headstart,omitempty"`
	QuestionIndex int           `json:"question_index"`
	Question      *QuestionView `json:"question,omitempty"`
}

type SessionClosedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
