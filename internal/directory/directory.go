// Package directory owns the process-wide map from game code to room
// actor (C6). It is the trivia-domain replacement for the teacher's
// matchmaker: where the teacher's Matchmaker assigns arbitrary players
// into whichever room has space, this directory resolves an exact,
// host-chosen game code and never reassigns a session to a different
// room behind its back.
package directory

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/quizroom/server/internal/apperr"
	"github.com/quizroom/server/internal/room"
	"github.com/rs/zerolog"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Directory tracks every live room actor, keyed by its four-letter game
// code, and sweeps idle ones after a grace period (§3 Lifecycles).
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*room.Actor

	metrics room.Metrics
	log     zerolog.Logger

	gracePeriod time.Duration
	sweepEvery  time.Duration
	stop        chan struct{}
}

// New constructs a directory. Call Run in its own goroutine to start the
// idle-room sweep.
func New(metrics room.Metrics, log zerolog.Logger, gracePeriod time.Duration) *Directory {
	if metrics == nil {
		metrics = room.NoopMetrics
	}
	return &Directory{
		rooms:       make(map[string]*room.Actor),
		metrics:     metrics,
		log:         log,
		gracePeriod: gracePeriod,
		sweepEvery:  30 * time.Second,
		stop:        make(chan struct{}),
	}
}

// Run sweeps for idle rooms until Stop is called, mirroring the
// teacher's CleanupEmptyRooms ticker in cmd/gameserver/main.go.
func (d *Directory) Run() {
	ticker := time.NewTicker(d.sweepEvery)
	defer ticker.Stop()

	idleSince := make(map[string]time.Time)

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.sweep(idleSince)
		}
	}
}

func (d *Directory) sweep(idleSince map[string]time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for code, a := range d.rooms {
		if !a.IsIdle() {
			delete(idleSince, code)
			continue
		}
		since, tracked := idleSince[code]
		if !tracked {
			idleSince[code] = now
			continue
		}
		if now.Sub(since) >= d.gracePeriod {
			a.Stop()
			delete(d.rooms, code)
			delete(idleSince, code)
			d.metrics.RoomRetired()
			d.log.Info().Str("game_code", code).Msg("retired idle room")
		}
	}
}

// Stop halts the sweep goroutine and every room actor it owns.
func (d *Directory) Stop() {
	close(d.stop)
	d.mu.Lock()
	defer d.mu.Unlock()
	for code, a := range d.rooms {
		a.Stop()
		delete(d.rooms, code)
		d.metrics.RoomRetired()
	}
}

// CreateOrAttach resolves a game code to a room actor, creating one with
// freshly defaulted settings if the code has never been used. An empty
// code generates a fresh, unused one.
func (d *Directory) CreateOrAttach(code string, settings room.GameSettings) (*room.Actor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if code == "" {
		code = d.generateUnusedCodeLocked()
	} else {
		code = strings.ToUpper(code)
		if !validCode(code) {
			return nil, apperr.New(apperr.MalformedMessage, "game code must be four letters")
		}
	}

	if a, ok := d.rooms[code]; ok {
		return a, nil
	}

	a := room.NewActor(code, settings, d.metrics, d.log)
	d.rooms[code] = a
	d.metrics.RoomCreated()
	go a.Run()
	return a, nil
}

// Resolve looks up an existing room by code without creating one.
func (d *Directory) Resolve(code string) (*room.Actor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, apperr.New(apperr.GameNotFound, "no such game")
	}
	return a, nil
}

// Retire stops and removes a room immediately, bypassing the grace
// period sweep.
func (d *Directory) Retire(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	code = strings.ToUpper(code)
	if a, ok := d.rooms[code]; ok {
		a.Stop()
		delete(d.rooms, code)
		d.metrics.RoomRetired()
	}
}

func (d *Directory) generateUnusedCodeLocked() string {
	for {
		code := randomCode()
		if _, ok := d.rooms[code]; !ok {
			return code
		}
	}
}

func randomCode() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func validCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
