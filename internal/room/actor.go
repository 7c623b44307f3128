package room

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/quizroom/server/internal/apperr"
	"github.com/quizroom/server/internal/protocol"
	"github.com/quizroom/server/internal/timer"
	"github.com/rs/zerolog"
)

// Metrics is the narrow observability surface the actor reports through;
// implemented by internal/metrics against Prometheus, kept as an
// interface here so this package never imports the client library
// directly.
type Metrics interface {
	SessionAttached()
	SessionDetached()
	MessageProcessed()
	CommandRejected(code string)
	RoomCreated()
	RoomRetired()
}

type noopMetrics struct{}

func (noopMetrics) SessionAttached()         {}
func (noopMetrics) SessionDetached()         {}
func (noopMetrics) MessageProcessed()        {}
func (noopMetrics) CommandRejected(_ string) {}
func (noopMetrics) RoomCreated()             {}
func (noopMetrics) RoomRetired()             {}

// NoopMetrics is a Metrics implementation that discards everything, used
// as the directory's default when the caller passes no real collector.
var NoopMetrics Metrics = noopMetrics{}

// sessionHandle is the actor's bookkeeping for one connected session.
type sessionHandle struct {
	role     Role
	teamName string
	outbox   chan<- []byte
}

type command struct {
	sessionID string
	outbox    chan<- []byte // non-nil only for an attach command
	detach    bool
	frame     *protocol.ClientFrame
}

// Actor is the single-threaded owner of one room's state (C5). Every
// mutation of the embedded Room happens on the goroutine started by Run;
// every other goroutine talks to it only through Dispatch/Attach/Detach,
// which enqueue onto inbox and never block state access directly.
type Actor struct {
	state *Room
	timer *timer.Timer

	inbox    chan command
	done     chan struct{}
	sessions map[string]*sessionHandle

	metrics Metrics
	log     zerolog.Logger

	idle atomic.Bool // updated at the end of every handled command; safe for the directory's sweep goroutine to read without locking the actor
}

// NewActor constructs a room and its actor, with a timer whose tick/expiry
// events Run selects on alongside the inbox. Call Run in its own goroutine
// to start processing.
func NewActor(code string, settings GameSettings, metrics Metrics, log zerolog.Logger) *Actor {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	state := New(code, settings)
	a := &Actor{
		state:    state,
		timer:    timer.New(state.CurrentQuestion().TimerDuration),
		inbox:    make(chan command, 256),
		done:     make(chan struct{}),
		sessions: make(map[string]*sessionHandle),
		metrics:  metrics,
		log:      log,
	}
	a.idle.Store(true)
	return a
}

// Code returns the room's game code.
func (a *Actor) Code() string { return a.state.GameCode }

// Run is the actor's event loop (§4.5, §5). It must be started in its
// own goroutine exactly once.
func (a *Actor) Run() {
	for {
		select {
		case cmd := <-a.inbox:
			a.handle(cmd)
		case ev := <-a.timer.Events():
			a.handleTimerEvent(ev)
		case <-a.done:
			a.timer.Stop()
			return
		}
	}
}

// Stop cancels the actor's loop and its timer (§5 cancellation).
func (a *Actor) Stop() {
	close(a.done)
}

// Attach registers a session's outbound channel before any frame from it
// is processed. The session starts Unbound; its first frame (createGame,
// validateJoin/joinGame, or subscribe) is what binds a role.
func (a *Actor) Attach(sessionID string, outbox chan<- []byte) {
	select {
	case a.inbox <- command{sessionID: sessionID, outbox: outbox}:
	default:
		a.log.Warn().Str("session", sessionID).Msg("inbox full, dropping attach")
	}
}

// Detach notifies the actor that a session's connection closed.
func (a *Actor) Detach(sessionID string) {
	select {
	case a.inbox <- command{sessionID: sessionID, detach: true}:
	default:
		a.log.Warn().Str("session", sessionID).Msg("inbox full, dropping detach")
	}
}

// Dispatch forwards one decoded inbound frame from sessionID. Like
// Attach/Detach, it never blocks: a full inbox drops the message and
// logs, per §5's "bounded... dropped" and §4.5's "unexpected internal
// errors... drop the offending message, and continue".
func (a *Actor) Dispatch(sessionID string, frame *protocol.ClientFrame) {
	select {
	case a.inbox <- command{sessionID: sessionID, frame: frame}:
	default:
		a.log.Warn().Str("session", sessionID).Msg("inbox full, dropping frame")
	}
}

func (a *Actor) handle(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			corrID := uuid.New().String()
			a.log.Error().Interface("panic", r).Str("corr_id", corrID).Msg("internal error handling command")
			a.metrics.CommandRejected(string(apperr.Internal))
			a.sendError(cmd.sessionID, apperr.Wrap(apperr.Internal, fmt.Sprintf("internal error, reference %s", corrID), fmt.Errorf("%v", r)))
		}
	}()

	if cmd.outbox != nil {
		a.sessions[cmd.sessionID] = &sessionHandle{role: RoleUnbound, outbox: cmd.outbox}
		a.metrics.SessionAttached()
		a.refreshIdle()
		return
	}
	if cmd.detach {
		a.handleDetach(cmd.sessionID)
		return
	}

	a.metrics.MessageProcessed()
	switch {
	case cmd.frame.Host != nil:
		a.handleHost(cmd.sessionID, cmd.frame.Host)
	case cmd.frame.Team != nil:
		a.handleTeam(cmd.sessionID, cmd.frame.Team)
	case cmd.frame.Watcher != nil:
		a.handleWatcher(cmd.sessionID, cmd.frame.Watcher)
	}
	a.refreshIdle()
}

func (a *Actor) refreshIdle() {
	idle := a.state.HostSessionID == ""
	if idle {
		for _, t := range a.state.Teams() {
			if t.Connected {
				idle = false
				break
			}
		}
	}
	a.idle.Store(idle)
}

func (a *Actor) handleDetach(sessionID string) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	delete(a.sessions, sessionID)
	a.metrics.SessionDetached()

	switch h.role {
	case RoleHost:
		if a.state.HostSessionID == sessionID {
			a.state.HostSessionID = ""
		}
		// Room persists so the host can rejoin (§3 Lifecycles).
	case RoleTeam:
		a.state.SetTeamConnected(h.teamName, false)
		a.broadcastAll()
	}
	a.refreshIdle()
}

func (a *Actor) handleTimerEvent(ev timer.Event) {
	if ev.Expired {
		if err := a.state.SetTimer(false, 0); err != nil {
			a.log.Error().Err(err).Msg("failed to apply timer expiry")
		}
	} else {
		if err := a.state.SetTimer(true, ev.SecondsRemaining); err != nil {
			a.log.Error().Err(err).Msg("failed to apply timer tick")
		}
	}

	for id, h := range a.sessions {
		if h.role == RoleHost || h.role == RoleTeam {
			a.sendTick(id, ev.SecondsRemaining)
		}
	}

	if ev.Expired {
		a.broadcastAll()
	}
}

func (a *Actor) sendTick(sessionID string, secondsRemaining int) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	data, err := protocol.TimerTickMessage{SecondsRemaining: secondsRemaining}.Encode()
	if err != nil {
		return
	}
	a.send(h.outbox, data)
}

// send delivers a frame to one session's bounded outbound buffer,
// dropping oldest-first on a full buffer per §5 (the next full snapshot
// resynchronizes it).
func (a *Actor) send(outbox chan<- []byte, data []byte) {
	select {
	case outbox <- data:
	default:
		select {
		case <-outbox:
		default:
		}
		select {
		case outbox <- data:
		default:
		}
	}
}

func (a *Actor) sendError(sessionID string, err *apperr.Error) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	msg := protocol.ErrorMessage{Code: string(err.Code), Message: err.Message}
	if h.role == RoleHost {
		snap := a.state.GameStateSnapshot()
		msg.State = &snap
	}
	data, encErr := msg.Encode()
	if encErr != nil {
		return
	}
	a.send(h.outbox, data)
	a.metrics.CommandRejected(string(err.Code))
}

// broadcastAll implements §4.5's broadcast policy: a full gameState to
// the host, a teamGameState to each team, and a scoreboardData to each
// watcher.
func (a *Actor) broadcastAll() {
	gameState := a.state.GameStateSnapshot()
	scoreboard := a.state.ScoreboardSnapshot()

	gsData, err := gameState.Encode()
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode game state")
		return
	}
	sbData, err := scoreboard.Encode()
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode scoreboard")
		return
	}

	teamStateCache := make(map[string][]byte)

	for _, h := range a.sessions {
		switch h.role {
		case RoleHost:
			a.send(h.outbox, gsData)
		case RoleTeam:
			data, ok := teamStateCache[h.teamName]
			if !ok {
				tgs := a.state.TeamGameStateSnapshot(h.teamName)
				encoded, err := tgs.Encode()
				if err != nil {
					a.log.Error().Err(err).Str("team", h.teamName).Msg("failed to encode team game state")
					continue
				}
				data = encoded
				teamStateCache[h.teamName] = data
			}
			a.send(h.outbox, data)
		case RoleWatcher:
			a.send(h.outbox, sbData)
		}
	}
}

// IsIdle reports whether the room has no connected host and no
// connected team, the trigger condition for the directory's grace-period
// teardown sweep (§3 Lifecycles). Backed by an atomic flag refreshed at
// the end of every processed command, so the directory's sweep goroutine
// can call it without reaching into actor-owned state directly.
func (a *Actor) IsIdle() bool {
	return a.idle.Load()
}
