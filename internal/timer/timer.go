// Package timer implements the per-room countdown (C4): one logical
// clock per room, ticking once a second, signaling the owning room actor
// through a channel rather than mutating any shared state itself. The
// goroutine-per-ticker shape is the trivia-domain analogue of the
// teacher's 60Hz physics ticker in internal/game/room.go, reduced to the
// 1Hz resolution this domain needs.
package timer

import (
	"sync"
	"time"
)

// State is one of the four countdown phases (§4.4).
type State int

const (
	Idle State = iota
	Running
	Paused
	Expired
)

// Event is delivered on every tick and on expiry. Expired is true only
// on the final tick of a countdown, the instant secondsRemaining reaches
// zero.
type Event struct {
	SecondsRemaining int
	Expired          bool
}

// Timer is one room's countdown. The zero value is not usable; construct
// with New. All exported methods are safe to call from the owning room
// actor's goroutine only — like Room, Timer has no concurrency story of
// its own beyond delivering Events on a channel.
type Timer struct {
	duration int
	state    State
	remaining int

	events chan Event
	stop   chan struct{}
	ticker *time.Ticker

	mu sync.Mutex // guards state/remaining against the ticking goroutine
}

// New creates a timer for a question with the given duration in seconds,
// starting Idle with the full duration loaded.
func New(durationSeconds int) *Timer {
	return &Timer{
		duration:  durationSeconds,
		remaining: durationSeconds,
		state:     Idle,
		events:    make(chan Event, 1),
		stop:      make(chan struct{}),
	}
}

// Events returns the channel the owning actor selects on for tick and
// expiry notifications.
func (t *Timer) Events() <-chan Event { return t.events }

// State reports the current countdown phase.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SecondsRemaining reports the current countdown value.
func (t *Timer) SecondsRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Start transitions Idle|Paused -> Running. A no-op if already Running.
// Starting from Expired resets to the full duration first (§4.4).
func (t *Timer) Start() {
	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return
	}
	if t.state == Expired {
		t.remaining = t.duration
	}
	if t.remaining == 0 {
		t.mu.Unlock()
		return
	}
	t.state = Running
	t.mu.Unlock()

	t.runLoop()
}

// Pause transitions Running -> Paused.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return
	}
	t.state = Paused
	t.stopLoop()
}

// Reset transitions to Idle at the given question's timer duration. If
// the question's configured duration changed (UpdateQuestionSettings),
// callers pass the new duration so the timer reflects it.
func (t *Timer) Reset(durationSeconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLoop()
	t.duration = durationSeconds
	t.remaining = durationSeconds
	t.state = Idle
}

// Stop halts the ticking goroutine permanently, used when the owning
// room is retired (§5 cancellation propagates to the timer).
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLoop()
}

func (t *Timer) stopLoop() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
		close(t.stop)
		t.stop = make(chan struct{})
	}
}

func (t *Timer) runLoop() {
	t.mu.Lock()
	t.ticker = time.NewTicker(time.Second)
	ticker := t.ticker
	stop := t.stop
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if t.tick() {
					return
				}
			}
		}
	}()
}

// tick decrements the remaining count by one second and emits an Event.
// It returns true once the countdown has expired, so the goroutine can
// exit without waiting for an external Stop.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != Running {
		t.mu.Unlock()
		return true
	}
	t.remaining--
	expired := t.remaining <= 0
	if expired {
		t.remaining = 0
		t.state = Expired
		t.ticker.Stop()
	}
	remaining := t.remaining
	t.mu.Unlock()

	ev := Event{SecondsRemaining: remaining, Expired: expired}
	select {
	case t.events <- ev:
	default:
		// Slow consumer: this event supersedes the pending one, so the
		// oldest is dropped, the same oldest-first drop tolerance the
		// session layer uses for broadcasts (§5).
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- ev:
		default:
		}
	}

	return expired
}
