package game

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestScheduler_FiresAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{})
	sched.Schedule(timerReveal, 3*time.Second, func() { close(fired) })

	clock.Advance(3 * time.Second)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire after advancing the clock")
	}
	if sched.Pending(timerReveal) {
		t.Fatalf("expected fired timer to be removed")
	}
}

func TestScheduler_CancelSuppressesFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{}, 1)
	sched.Schedule(timerReveal, 3*time.Second, func() { fired <- struct{}{} })
	sched.Cancel(timerReveal)

	clock.Advance(5 * time.Second)

	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_ScheduleReplacesPendingTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan int, 2)
	sched.Schedule(timerReveal, time.Second, func() { fired <- 1 })
	sched.Schedule(timerReveal, 2*time.Second, func() { fired <- 2 })

	clock.Advance(3 * time.Second)

	select {
	case got := <-fired:
		if got != 2 {
			t.Fatalf("expected replacement timer to fire, got callback %d", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("replacement timer did not fire")
	}

	select {
	case got := <-fired:
		t.Fatalf("replaced timer fired too, callback %d", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_CancelAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan string, 3)
	sched.Schedule(timerReveal, time.Second, func() { fired <- timerReveal })
	sched.Schedule(timerAnswerWindow, time.Second, func() { fired <- timerAnswerWindow })
	sched.Schedule(timerGrace, time.Second, func() { fired <- timerGrace })

	sched.CancelAll()
	clock.Advance(2 * time.Second)

	select {
	case kind := <-fired:
		t.Fatalf("timer %s fired after CancelAll", kind)
	case <-time.After(100 * time.Millisecond):
	}

	for _, kind := range []string{timerReveal, timerAnswerWindow, timerGrace} {
		if sched.Pending(kind) {
			t.Fatalf("timer %s still pending after CancelAll", kind)
		}
	}
}

func TestScheduler_IndependentKinds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan string, 2)
	sched.Schedule(timerReveal, time.Second, func() { fired <- timerReveal })
	sched.Schedule(timerGrace, time.Second, func() { fired <- timerGrace })
	sched.Cancel(timerGrace)

	clock.Advance(time.Second)

	select {
	case kind := <-fired:
		if kind != timerReveal {
			t.Fatalf("expected reveal timer, got %s", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reveal timer did not fire")
	}
}
