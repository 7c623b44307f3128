// Package session upgrades an HTTP request to a websocket connection and
// runs its read/write pumps, the trivia-domain counterpart of the
// teacher's ClientConnection in cmd/gameserver/main.go. Each session owns
// exactly one room actor attachment for its lifetime; unlike the
// teacher's connection, which could switch rooms via leaveRoom/joinRoom,
// a trivia session's game code is fixed by the URL it connected on.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizroom/server/internal/apperr"
	"github.com/quizroom/server/internal/auth"
	"github.com/quizroom/server/internal/directory"
	"github.com/quizroom/server/internal/protocol"
	"github.com/quizroom/server/internal/room"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// GameSettingsSource hands out the default GameSettings a newly created
// room should start with. Satisfied by config.GameSettingsSource.
type GameSettingsSource interface {
	Current() room.GameSettings
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
	outboxSize     = 64

	// inboundRate bounds how many frames per second one session may send,
	// the trivia-domain analogue of the teacher's ValidateInputRate
	// per-tick input cap in internal/game/anticheat.go — there it capped
	// physics inputs per 60Hz tick, here it caps protocol frames per
	// session regardless of what they contain.
	inboundRate  = 10
	inboundBurst = 20

	// maxConsecutiveMalformed is how many decode failures in a row a
	// session may send before the connection is closed outright (§7: a
	// recurring MalformedMessage closes the session rather than replying
	// error forever). Any successfully decoded frame resets the count.
	maxConsecutiveMalformed = 5
)

// Handler upgrades connections on the trivia websocket endpoint and
// wires each one to the room actor named by its "code" query parameter.
type Handler struct {
	dir      *directory.Directory
	verifier *auth.Verifier
	settings GameSettingsSource
	upgrader websocket.Upgrader
	log      zerolog.Logger

	// AllowOrigin controls CORS for the websocket handshake, the same
	// knob the teacher exposes as ServerConfig.EnableCORS.
	AllowOrigin func(r *http.Request) bool
}

// NewHandler constructs a session handler bound to a directory, host
// token verifier, and the current default game settings source.
func NewHandler(dir *directory.Directory, verifier *auth.Verifier, settings GameSettingsSource, log zerolog.Logger) *Handler {
	h := &Handler{dir: dir, verifier: verifier, settings: settings, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowOrigin == nil {
				return true
			}
			return h.AllowOrigin(r)
		},
	}
	return h
}

// ServeHTTP upgrades the connection and attaches it to the room named by
// the "code" query parameter. A "host" role is additionally gated by a
// bearer token carrying the host group claim (§2).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	role := r.URL.Query().Get("role")

	if role == "host" {
		if err := h.verifier.VerifyHost(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var actor *room.Actor
	var err error
	if role == "host" {
		actor, err = h.dir.CreateOrAttach(code, h.settings.Current())
	} else {
		actor, err = h.dir.Resolve(code)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &clientSession{
		id:      uuid.NewString(),
		ws:      ws,
		actor:   actor,
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		log:     h.log,
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
	go s.writePump()
	go s.readPump()
}

// clientSession is one websocket connection's pump pair, grounded on the
// teacher's ClientConnection readPump/writePump split.
type clientSession struct {
	id      string
	ws      *websocket.Conn
	actor   *room.Actor
	outbox  chan []byte
	done    chan struct{}
	log     zerolog.Logger
	limiter *rate.Limiter

	malformedStreak int
}

func (s *clientSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.ws.Close()

	for {
		select {
		case <-s.done:
			return
		case data := <-s.outbox:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *clientSession) readPump() {
	defer s.cleanup()

	s.ws.SetReadLimit(maxMessageSize)
	s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		s.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.actor.Attach(s.id, s.outbox)

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debug().Err(err).Str("session", s.id).Msg("websocket read error")
			}
			return
		}

		if !s.limiter.Allow() {
			continue
		}

		frame, decErr := protocol.Decode(data)
		if decErr != nil {
			s.malformedStreak++
			ae, _ := apperr.As(decErr)
			s.sendDecodeError(ae)
			if s.malformedStreak >= maxConsecutiveMalformed {
				s.log.Warn().Str("session", s.id).Msg("closing session after repeated malformed messages")
				return
			}
			continue
		}
		s.malformedStreak = 0
		s.actor.Dispatch(s.id, frame)
	}
}

func (s *clientSession) sendDecodeError(ae *apperr.Error) {
	if ae == nil {
		return
	}
	msg := protocol.ErrorMessage{Code: string(ae.Code), Message: ae.Message}
	data, err := msg.Encode()
	if err != nil {
		return
	}
	select {
	case s.outbox <- data:
	default:
	}
}

func (s *clientSession) cleanup() {
	s.actor.Detach(s.id)
	close(s.done)
	s.ws.Close()
}
