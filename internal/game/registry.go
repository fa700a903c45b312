package game

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CodeLength is the length of a room code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const maxCodeAttempts = 16

// Registry owns the set of active sessions keyed by room code. It is an
// explicitly constructed object rather than a package-level singleton so
// isolated instances can exist side by side in tests.
type Registry struct {
	cfg    Config
	clock  clockwork.Clock
	source QuestionSource
	bcast  Broadcaster

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. Sessions it creates inherit the
// given config, clock, question source and broadcaster.
func NewRegistry(cfg Config, clock clockwork.Clock, source QuestionSource, bcast Broadcaster) *Registry {
	return &Registry{
		cfg:      cfg,
		clock:    clock,
		source:   source,
		bcast:    bcast,
		sessions: make(map[string]*Session),
	}
}

// Create allocates a fresh collision-checked room code and inserts an
// empty session in the lobby phase.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.sessions[code]; taken {
			continue
		}
		s := newSession(code, r.cfg, r.clock, r.source, r.bcast, func() string {
			return uuid.New().String()
		}, r.Remove)
		r.sessions[code] = s
		log.Info().Str("room", code).Msg("session created")
		return s, nil
	}
	return nil, ErrCodeSpaceBusy
}

// Get looks up a session by room code.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// Remove drops a session from the registry. The room code becomes
// unreachable immediately.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RunReaper closes sessions that have seen no activity for ttl, checking
// every interval. It blocks until the context is cancelled.
func (r *Registry) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.reapIdle(ttl)
		}
	}
}

func (r *Registry) reapIdle(ttl time.Duration) {
	cutoff := r.clock.Now().Add(-ttl)

	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	// LastActive and Close both take the session mutex, and a closing
	// session calls back into Remove for the registry write lock. Neither
	// may run while the registry lock is held or the lock order inverts
	// against closeLocked.
	for _, s := range sessions {
		if s.LastActive().Before(cutoff) {
			log.Info().Str("room", s.Code()).Msg("reaping idle session")
			s.Close("idle")
		}
	}
}

func generateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
