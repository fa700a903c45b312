package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Timer kinds used by the session. At most one timer of each kind is
// armed per session; scheduling a kind again replaces the previous timer.
const (
	timerAnswerWindow = "answer_window"
	timerReveal       = "reveal"
	timerGameOver     = "game_over"
	timerReadyPrompt  = "ready_prompt"
	timerFetch        = "fetch"
	timerGrace        = "grace"
)

// graceKind names one player's reconnect grace timer. Grace windows are
// per player, so a second disconnect never resets the first absentee's
// deadline.
func graceKind(playerID string) string {
	return timerGrace + ":" + playerID
}

// Scheduler owns a session's cancellable delayed callbacks. Callbacks run
// on their own goroutine; the session re-validates phase and round
// generation under its lock before acting, so a stale fire is harmless.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]*scheduledTask
}

type scheduledTask struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// NewScheduler creates a scheduler driven by the given clock. Tests pass
// a clockwork.FakeClock to advance logical time deterministically.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		timers: make(map[string]*scheduledTask),
	}
}

// Schedule arms a one-shot timer for the given kind, atomically replacing
// any timer of the same kind that is still pending.
func (s *Scheduler) Schedule(kind string, d time.Duration, fn func()) {
	task := &scheduledTask{
		timer:  s.clock.NewTimer(d),
		cancel: make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.timers[kind]; ok {
		stopAndDrainTimer(prev.timer)
		close(prev.cancel)
		log.Debug().Str("timer", kind).Msg("replaced pending timer")
	}
	s.timers[kind] = task
	s.mu.Unlock()

	go func() {
		select {
		case <-task.timer.Chan():
			s.remove(kind, task)
			fn()
		case <-task.cancel:
		}
	}()
}

// Cancel stops the pending timer of the given kind, if any.
func (s *Scheduler) Cancel(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.timers[kind]; ok {
		stopAndDrainTimer(task.timer)
		close(task.cancel)
		delete(s.timers, kind)
	}
}

// CancelAll stops every pending timer. Mandatory on session teardown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, task := range s.timers {
		stopAndDrainTimer(task.timer)
		close(task.cancel)
		delete(s.timers, kind)
	}
}

// Pending reports whether a timer of the given kind is armed.
func (s *Scheduler) Pending(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[kind]
	return ok
}

// remove drops a fired task, unless it has already been replaced by a
// newer timer of the same kind.
func (s *Scheduler) remove(kind string, task *scheduledTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[kind]; ok && cur == task {
		delete(s.timers, kind)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel, per the
// pattern recommended in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
