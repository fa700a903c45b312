package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"quizchase/internal/game"
)

type testSource struct{}

func (testSource) NextQuestion(ctx context.Context) (game.Question, error) {
	return game.Question{
		Text:    "Which gas makes up most of Earth's atmosphere?",
		Options: []string{"Oxygen", "Nitrogen", "Argon"},
		Correct: 1,
	}, nil
}

// newTestRouter builds a router whose registry broadcasts through the
// manager, so every event ends up on the manager's outbound queue. The
// queue is inspected directly instead of running the delivery loop.
func newTestRouter(t *testing.T) (*Router, *Manager, *game.Registry) {
	t.Helper()
	mgr := NewManager(DefaultConnConfig())
	registry := game.NewRegistry(game.Config{}, clockwork.NewFakeClock(), testSource{}, mgr)
	rt := NewRouter(registry, mgr, StaticValidator{})
	return rt, mgr, registry
}

func nextOutbound(t *testing.T, m *Manager, want game.EventType) outbound {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case out := <-m.broadcastCh:
			if out.event.Type == want {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s on the outbound queue", want)
		}
	}
}

func expectErrorReply(t *testing.T, m *Manager, connID, fragment string) {
	t.Helper()
	out := nextOutbound(t, m, game.EventError)
	if out.connID != connID {
		t.Fatalf("error sent to %q, expected %q", out.connID, connID)
	}
	var payload game.ErrorPayload
	if err := json.Unmarshal(out.event.Data, &payload); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if !strings.Contains(payload.Message, fragment) {
		t.Fatalf("error %q does not mention %q", payload.Message, fragment)
	}
}

func TestRouter_CreateBindsConnection(t *testing.T) {
	rt, mgr, registry := newTestRouter(t)
	c := &Conn{ID: "conn-1"}

	rt.HandleMessage(c, []byte(`{"action":"create_game"}`))

	out := nextOutbound(t, mgr, game.EventGameCreated)
	if out.connID != "conn-1" {
		t.Fatalf("game_created sent to %q", out.connID)
	}
	var payload game.GameCreatedPayload
	if err := json.Unmarshal(out.event.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Code != c.Code {
		t.Fatalf("announced code %q, connection bound to %q", payload.Code, c.Code)
	}
	if c.PlayerID == "" {
		t.Fatalf("connection not bound to a player")
	}
	if _, ok := registry.Get(c.Code); !ok {
		t.Fatalf("created session not in the registry")
	}
	nextOutbound(t, mgr, game.EventGameJoined)
}

func TestRouter_JoinByCode(t *testing.T) {
	rt, _, _ := newTestRouter(t)
	host := &Conn{ID: "conn-1"}
	rt.HandleMessage(host, []byte(`{"action":"create_game"}`))

	guest := &Conn{ID: "conn-2"}
	rt.HandleMessage(guest, []byte(`{"action":"join_game","code":"`+host.Code+`"}`))

	if guest.Code != host.Code {
		t.Fatalf("guest bound to %q, expected %q", guest.Code, host.Code)
	}
	if guest.PlayerID == "" || guest.PlayerID == host.PlayerID {
		t.Fatalf("guest identity %q invalid", guest.PlayerID)
	}
}

func TestRouter_JoinUnknownCodeFails(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}

	rt.HandleMessage(c, []byte(`{"action":"join_game","code":"NOPE99"}`))

	expectErrorReply(t, mgr, "conn-1", "not found")
	if c.Code != "" || c.PlayerID != "" {
		t.Fatalf("failed join still bound the connection")
	}
}

func TestRouter_SecondBindRejected(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}
	rt.HandleMessage(c, []byte(`{"action":"create_game"}`))
	code := c.Code

	rt.HandleMessage(c, []byte(`{"action":"create_game"}`))

	expectErrorReply(t, mgr, "conn-1", game.ErrBadPhase.Error())
	if c.Code != code {
		t.Fatalf("rejected create rebound the connection to %q", c.Code)
	}
}

func TestRouter_UnboundPlayerActionRejected(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}

	rt.HandleMessage(c, []byte(`{"action":"select_role","role":"hunter"}`))

	expectErrorReply(t, mgr, "conn-1", game.ErrUnknownPlayer.Error())
}

func TestRouter_SpectatorActionsRejected(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	host := &Conn{ID: "conn-1"}
	rt.HandleMessage(host, []byte(`{"action":"create_game"}`))

	spec := &Conn{ID: "conn-spec"}
	rt.HandleMessage(spec, []byte(`{"action":"join_as_spectator","code":"`+host.Code+`"}`))
	if !spec.Spectator || spec.Code != host.Code {
		t.Fatalf("spectator not bound: spectator=%v code=%q", spec.Spectator, spec.Code)
	}
	out := nextOutbound(t, mgr, game.EventGameStateSync)
	if out.connID != "conn-spec" {
		t.Fatalf("snapshot sent to %q", out.connID)
	}

	rt.HandleMessage(spec, []byte(`{"action":"submit_answer","answer":1}`))
	expectErrorReply(t, mgr, "conn-spec", game.ErrSpectatorAction.Error())
}

func TestRouter_MissingAnswerFieldRejected(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}
	rt.HandleMessage(c, []byte(`{"action":"create_game"}`))

	rt.HandleMessage(c, []byte(`{"action":"submit_answer"}`))

	expectErrorReply(t, mgr, "conn-1", game.ErrBadAnswer.Error())
}

func TestRouter_RejoinAfterDisconnect(t *testing.T) {
	rt, mgr, registry := newTestRouter(t)
	host := &Conn{ID: "conn-1"}
	rt.HandleMessage(host, []byte(`{"action":"create_game"}`))
	guest := &Conn{ID: "conn-2"}
	rt.HandleMessage(guest, []byte(`{"action":"join_game","code":"`+host.Code+`"}`))

	rt.HandleClose(guest)
	nextOutbound(t, mgr, game.EventPlayerDisconnected)

	back := &Conn{ID: "conn-3"}
	rt.HandleMessage(back, []byte(`{"action":"rejoin_game","code":"`+host.Code+`","player_id":"`+guest.PlayerID+`"}`))

	if back.Code != host.Code || back.PlayerID != guest.PlayerID {
		t.Fatalf("rejoin did not rebind: code=%q player=%q", back.Code, back.PlayerID)
	}
	nextOutbound(t, mgr, game.EventPlayerReconnected)
	out := nextOutbound(t, mgr, game.EventGameStateSync)
	if out.connID != "conn-3" {
		t.Fatalf("snapshot sent to %q, expected conn-3", out.connID)
	}
	if _, ok := registry.Get(host.Code); !ok {
		t.Fatalf("session disappeared during rejoin")
	}
}

func TestRouter_RejoinFailureReportsReason(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}

	rt.HandleMessage(c, []byte(`{"action":"rejoin_game","code":"NOPE99","player_id":"ghost"}`))

	out := nextOutbound(t, mgr, game.EventRejoinFailed)
	if out.connID != "conn-1" {
		t.Fatalf("rejoin_failed sent to %q", out.connID)
	}
	if c.Code != "" {
		t.Fatalf("failed rejoin bound the connection to %q", c.Code)
	}
}

func TestRouter_UnknownActionAnswered(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}
	rt.HandleMessage(c, []byte(`{"action":"create_game"}`))

	rt.HandleMessage(c, []byte(`{"action":"moonwalk"}`))

	expectErrorReply(t, mgr, "conn-1", ErrUnknownAction.Error())
}

func TestRouter_MalformedFrameAnswered(t *testing.T) {
	rt, mgr, _ := newTestRouter(t)
	c := &Conn{ID: "conn-1"}

	rt.HandleMessage(c, []byte(`{"action":`))

	expectErrorReply(t, mgr, "conn-1", "decode")
}
