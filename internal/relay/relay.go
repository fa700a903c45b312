// Package relay mirrors session events onto a NATS message bus so
// out-of-process consumers (dashboards, recorders) can follow games
// without holding a websocket into the server.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"quizchase/internal/game"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default relay settings.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "duel.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Relay is a game.Broadcaster that publishes every room event to
// "<prefix>.<room code>" and then forwards it to the next broadcaster.
// Direct sends are not mirrored; they carry per-connection payloads.
type Relay struct {
	next   game.Broadcaster
	nc     *nats.Conn
	prefix string
}

// New connects to NATS and wraps the given broadcaster.
func New(cfg Config, next game.Broadcaster) (*Relay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Relay{next: next, nc: nc, prefix: cfg.SubjectPrefix}, nil
}

// BroadcastRoom publishes the event to the room's subject and forwards it
// to the wrapped broadcaster. A publish failure never blocks the game.
func (r *Relay) BroadcastRoom(code string, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for relay")
	} else if err := r.nc.Publish(fmt.Sprintf("%s.%s", r.prefix, code), data); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to publish event to NATS")
	}
	r.next.BroadcastRoom(code, ev)
}

// SendToConn forwards directly; per-connection events stay off the bus.
func (r *Relay) SendToConn(connID string, ev game.Event) {
	r.next.SendToConn(connID, ev)
}

// Close drains the NATS connection.
func (r *Relay) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
