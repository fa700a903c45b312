package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quizchase/internal/game"
)

// Manager owns the websocket connections, grouped into rooms by code. It
// implements game.Broadcaster: the session layer hands it events and
// never touches a socket.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]bool
	byID  map[string]*Conn

	upgrader websocket.Upgrader
	config   ConnConfig

	broadcastCh chan outbound

	// onMessage and onClose are invoked from each connection's read pump.
	onMessage func(c *Conn, data []byte)
	onClose   func(c *Conn)
}

// Conn is one websocket connection. Code, PlayerID and Spectator are only
// written and read on the connection's own read pump goroutine.
//
// send is never closed; a concurrent deliver may still hold a reference
// after unregistration. done signals teardown instead.
type Conn struct {
	ID        string
	Code      string
	PlayerID  string
	Spectator bool

	sock *websocket.Conn
	send chan []byte
	done chan struct{}
	mgr  *Manager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnConfig holds websocket transport settings.
type ConnConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnConfig returns default websocket settings.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

type outbound struct {
	code   string // broadcast target room, empty for direct sends
	connID string // direct send target, empty for room broadcasts
	event  game.Event
}

// NewManager creates a connection manager. The message and close
// callbacks are wired afterwards by the router.
func NewManager(config ConnConfig) *Manager {
	return &Manager{
		rooms: make(map[string]map[*Conn]bool),
		byID:  make(map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan outbound, 1000),
	}
}

// SetHandlers wires the inbound message and close callbacks.
func (m *Manager) SetHandlers(onMessage func(c *Conn, data []byte), onClose func(c *Conn)) {
	m.onMessage = onMessage
	m.onClose = onClose
}

// Start processes queued outbound events until the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case out := <-m.broadcastCh:
			m.deliver(out)
		}
	}
}

// BroadcastRoom queues an event for every connection in the room,
// players and spectators alike.
func (m *Manager) BroadcastRoom(code string, ev game.Event) {
	select {
	case m.broadcastCh <- outbound{code: code, event: ev}:
	default:
		log.Warn().Str("room", code).Msg("broadcast channel full, dropping event")
	}
}

// SendToConn queues an event for a single connection.
func (m *Manager) SendToConn(connID string, ev game.Event) {
	select {
	case m.broadcastCh <- outbound{connID: connID, event: ev}:
	default:
		log.Warn().Str("connection_id", connID).Msg("broadcast channel full, dropping event")
	}
}

// HandleWS upgrades an HTTP request and starts the connection's pumps.
// All game actions arrive as messages on the socket afterwards.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	c := &Conn{
		ID:          uuid.New().String(),
		sock:        sock,
		send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		mgr:         m,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}
	m.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().Str("connection_id", c.ID).Msg("websocket connection established")
}

// JoinRoom adds a connection to a room's broadcast set.
func (m *Manager) JoinRoom(c *Conn, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[code] == nil {
		m.rooms[code] = make(map[*Conn]bool)
	}
	m.rooms[code][c] = true
	log.Debug().Str("connection_id", c.ID).Str("room", code).Msg("connection joined room")
}

// LeaveRoom removes a connection from a room's broadcast set.
func (m *Manager) LeaveRoom(c *Conn, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveRoomLocked(c, code)
}

func (m *Manager) leaveRoomLocked(c *Conn, code string) {
	if conns, ok := m.rooms[code]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.rooms, code)
		}
	}
}

func (m *Manager) register(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
}

func (m *Manager) unregister(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[c.ID]; !ok {
		return
	}
	delete(m.byID, c.ID)
	if c.Code != "" {
		m.leaveRoomLocked(c, c.Code)
	}
	close(c.done)
	log.Info().Str("connection_id", c.ID).Msg("connection unregistered")
}

// Stats returns counts of active connections per room.
func (m *Manager) Stats() (total int, rooms map[string]int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms = make(map[string]int, len(m.rooms))
	for code, conns := range m.rooms {
		rooms[code] = len(conns)
	}
	return len(m.byID), rooms
}

func (m *Manager) deliver(out outbound) {
	m.mu.RLock()
	var targets []*Conn
	if out.connID != "" {
		if c, ok := m.byID[out.connID]; ok {
			targets = append(targets, c)
		}
	} else if conns, ok := m.rooms[out.code]; ok {
		for c := range conns {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(out.event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for delivery")
		return
	}

	for _, c := range targets {
		select {
		case c.send <- data:
		case <-c.done:
			// Unregistered after the snapshot was taken; drop the event.
		default:
			// Connection is slow/dead, close it
			log.Warn().Str("connection_id", c.ID).Msg("send buffer full, closing connection")
			m.unregister(c)
			c.sock.Close()
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.mgr.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(c.mgr.config.WriteTimeout))
			if err := c.sock.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}

		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(c.mgr.config.WriteTimeout))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.mgr.config.WriteTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		if c.mgr.onClose != nil {
			c.mgr.onClose(c)
		}
		c.mgr.unregister(c)
		c.sock.Close()
	}()

	c.sock.SetReadLimit(c.mgr.config.MaxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(c.mgr.config.ReadTimeout))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(c.mgr.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		if c.mgr.onMessage != nil {
			c.mgr.onMessage(c, message)
		}
		c.sock.SetReadDeadline(time.Now().Add(c.mgr.config.ReadTimeout))
	}
}
