package gateway

import (
	"github.com/rs/zerolog/log"

	"quizchase/internal/game"
)

// Router dispatches inbound client messages to the session layer. Every
// failure is answered with a structured error event on the offending
// connection; nothing here can corrupt session state for the other
// player.
type Router struct {
	registry   *game.Registry
	mgr        *Manager
	spectators SpectatorValidator
}

// NewRouter wires a router into the manager's message callbacks.
func NewRouter(registry *game.Registry, mgr *Manager, spectators SpectatorValidator) *Router {
	rt := &Router{
		registry:   registry,
		mgr:        mgr,
		spectators: spectators,
	}
	mgr.SetHandlers(rt.HandleMessage, rt.HandleClose)
	return rt
}

// HandleMessage processes one inbound frame from a connection. It runs on
// the connection's read pump, so messages from one client are handled in
// order.
func (rt *Router) HandleMessage(c *Conn, data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		rt.sendError(c, err)
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("action", string(msg.Action)).
		Msg("handling client message")

	switch msg.Action {
	case ActionCreateGame:
		rt.handleCreate(c)
	case ActionJoinGame:
		rt.handleJoin(c, msg)
	case ActionRejoinGame:
		rt.handleRejoin(c, msg)
	case ActionJoinSpectator:
		rt.handleJoinSpectator(c, msg)
	default:
		rt.handlePlayerAction(c, msg)
	}
}

// HandleClose reports a hard disconnect to the player's session. Stale
// closes from connections already replaced by a rejoin are ignored by the
// session.
func (rt *Router) HandleClose(c *Conn) {
	if c.Spectator || c.PlayerID == "" || c.Code == "" {
		return
	}
	if s, ok := rt.registry.Get(c.Code); ok {
		s.Disconnect(c.PlayerID, c.ID)
	}
}

func (rt *Router) handleCreate(c *Conn) {
	if c.Code != "" {
		rt.sendError(c, game.ErrBadPhase)
		return
	}

	s, err := rt.registry.Create()
	if err != nil {
		rt.sendError(c, err)
		return
	}

	rt.mgr.JoinRoom(c, s.Code())
	rt.mgr.SendToConn(c.ID, game.NewEvent(s.Code(), game.EventGameCreated, game.GameCreatedPayload{Code: s.Code()}))

	playerID, err := s.Join(c.ID)
	if err != nil {
		rt.mgr.LeaveRoom(c, s.Code())
		rt.sendError(c, err)
		return
	}
	c.Code = s.Code()
	c.PlayerID = playerID
}

func (rt *Router) handleJoin(c *Conn, msg ClientMessage) {
	if c.Code != "" {
		rt.sendError(c, game.ErrBadPhase)
		return
	}

	s, ok := rt.registry.Get(msg.Code)
	if !ok {
		rt.sendError(c, game.ErrRoomNotFound)
		return
	}

	rt.mgr.JoinRoom(c, s.Code())
	playerID, err := s.Join(c.ID)
	if err != nil {
		rt.mgr.LeaveRoom(c, s.Code())
		rt.sendError(c, err)
		return
	}
	c.Code = s.Code()
	c.PlayerID = playerID
}

func (rt *Router) handleRejoin(c *Conn, msg ClientMessage) {
	fail := func(reason string) {
		rt.mgr.SendToConn(c.ID, game.NewEvent(msg.Code, game.EventRejoinFailed, game.RejoinFailedPayload{Message: reason}))
	}

	if c.Code != "" || msg.PlayerID == "" {
		fail("connection already bound or identity missing")
		return
	}
	s, ok := rt.registry.Get(msg.Code)
	if !ok {
		fail("room not found")
		return
	}

	rt.mgr.JoinRoom(c, s.Code())
	if err := s.Rejoin(msg.PlayerID, c.ID); err != nil {
		rt.mgr.LeaveRoom(c, s.Code())
		fail(err.Error())
		return
	}
	c.Code = s.Code()
	c.PlayerID = msg.PlayerID
}

func (rt *Router) handleJoinSpectator(c *Conn, msg ClientMessage) {
	if c.Code != "" {
		rt.sendError(c, game.ErrBadPhase)
		return
	}
	if err := rt.spectators.Validate(msg.Code, msg.Credential); err != nil {
		rt.sendError(c, err)
		return
	}
	s, ok := rt.registry.Get(msg.Code)
	if !ok {
		rt.sendError(c, game.ErrRoomNotFound)
		return
	}

	rt.mgr.JoinRoom(c, s.Code())
	c.Code = s.Code()
	c.Spectator = true
	rt.mgr.SendToConn(c.ID, game.NewEvent(s.Code(), game.EventGameStateSync, s.Snapshot("")))
	log.Info().Str("connection_id", c.ID).Str("room", s.Code()).Msg("spectator joined")
}

// handlePlayerAction covers every action that requires a bound player
// slot. Spectator and unbound connections are rejected here and never
// reach the session FSM.
func (rt *Router) handlePlayerAction(c *Conn, msg ClientMessage) {
	if c.Spectator {
		rt.sendError(c, game.ErrSpectatorAction)
		return
	}
	if c.PlayerID == "" || c.Code == "" {
		rt.sendError(c, game.ErrUnknownPlayer)
		return
	}
	s, ok := rt.registry.Get(c.Code)
	if !ok {
		rt.sendError(c, game.ErrRoomNotFound)
		return
	}

	var err error
	switch msg.Action {
	case ActionSelectRole:
		err = s.SelectRole(c.PlayerID, game.Role(msg.Role))
	case ActionSelectHeadstart:
		if msg.Headstart == nil {
			err = game.ErrBadHeadstart
		} else {
			err = s.SelectHeadstart(c.PlayerID, *msg.Headstart)
		}
	case ActionPlayerReady:
		err = s.Ready(c.PlayerID)
	case ActionSubmitAnswer:
		if msg.Answer == nil {
			err = game.ErrBadAnswer
		} else {
			err = s.SubmitAnswer(c.PlayerID, *msg.Answer)
		}
	case ActionPlayAgain, ActionRequestRematch:
		err = s.RequestRematch(c.PlayerID)
	case ActionPlayerPaused:
		err = s.Pause(c.PlayerID)
	case ActionPlayerResumed:
		err = s.Resume(c.PlayerID, c.ID)
	default:
		log.Warn().Str("action", string(msg.Action)).Msg("unknown action")
		err = ErrUnknownAction
	}

	if err != nil {
		rt.sendError(c, err)
	}
}

func (rt *Router) sendError(c *Conn, err error) {
	rt.mgr.SendToConn(c.ID, game.NewEvent(c.Code, game.EventError, game.ErrorPayload{Message: err.Error()}))
}
