package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/quizroom/server/internal/apperr"
)

// Host command type discriminators (§6).
const (
	HostCreateGame             = "createGame"
	HostStartTimer             = "startTimer"
	HostPauseTimer             = "pauseTimer"
	HostResetTimer             = "resetTimer"
	HostNextQuestion           = "nextQuestion"
	HostPrevQuestion           = "prevQuestion"
	HostScoreAnswer            = "scoreAnswer"
	HostOverrideTeamScore      = "overrideTeamScore"
	HostUpdateQuestionSettings = "updateQuestionSettings"
	HostUpdateGameSettings     = "updateGameSettings"
)

// HostFrame is the decoded payload of a `{"host": {...}}` envelope. Every
// field beyond Type is optional and only meaningful for the command
// variants that use it; the room actor — not this package — rejects a
// variant with fields missing for its needs.
type HostFrame struct {
	Type     string `json:"type"`
	GameCode string `json:"gameCode,omitempty"`

	QuestionNumber int    `json:"questionNumber,omitempty"`
	TeamName       string `json:"teamName,omitempty"`

	// Score carries the score tuple for scoreAnswer: QuestionPoints is the
	// new correctness mark (triggers §4.2 propagation), BonusPoints is the
	// team's new bonus total (applied as a delta against the stored value
	// so the room-state mutator stays delta-based per §4.3).
	Score *ScoreComponentsDTO `json:"score,omitempty"`

	// TargetScore is overrideTeamScore's host-entered total for the cell;
	// the server computes newOverride = target - (qp+bp+sp) itself per §9,
	// rather than trusting a client-computed overridePoints value.
	TargetScore *int `json:"targetScore,omitempty"`

	QuestionSettings *QuestionSettingsDTO `json:"questionSettings,omitempty"`
	GameSettings     *GameSettingsDTO     `json:"gameSettings,omitempty"`
}

// WatcherFrame is the decoded payload of a `{"watcher": {...}}` envelope.
type WatcherFrame struct {
	Type     string `json:"type"`
	GameCode string `json:"gameCode"`
}

// Team command variant keys (§6 team frame is a single-key variant
// object, not a `type` discriminator).
const (
	TeamValidateJoin  = "validateJoin"
	TeamJoinGame      = "joinGame"
	TeamSubmitAnswer  = "submitAnswer"
)

// ValidateJoinPayload is the body of a team validateJoin variant.
type ValidateJoinPayload struct {
	GameCode string   `json:"gameCode"`
	TeamName string   `json:"teamName"`
	Color    ColorDTO `json:"color"`
}

// JoinGamePayload is the body of a team joinGame variant.
type JoinGamePayload struct {
	GameCode    string   `json:"gameCode"`
	TeamName    string   `json:"teamName"`
	TeamMembers []string `json:"teamMembers"`
	Color       ColorDTO `json:"color"`
}

// SubmitAnswerPayload is the body of a team submitAnswer variant.
type SubmitAnswerPayload struct {
	QuestionNumber int        `json:"questionNumber"`
	Content        ContentDTO `json:"content"`
}

// TeamFrame is the decoded `{"team": {...}}` envelope: exactly one of
// the three payload fields is non-nil, selected by Variant.
type TeamFrame struct {
	Variant      string
	ValidateJoin *ValidateJoinPayload
	JoinGame     *JoinGamePayload
	SubmitAnswer *SubmitAnswerPayload
}

func (t *TeamFrame) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperr.Wrap(apperr.MalformedMessage, "team frame is not an object", err)
	}
	if len(raw) != 1 {
		return apperr.New(apperr.MalformedMessage, "team frame must have exactly one variant key")
	}

	for key, body := range raw {
		switch key {
		case TeamValidateJoin:
			var p ValidateJoinPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return apperr.Wrap(apperr.MalformedMessage, "invalid validateJoin payload", err)
			}
			t.Variant, t.ValidateJoin = TeamValidateJoin, &p
		case TeamJoinGame:
			var p JoinGamePayload
			if err := json.Unmarshal(body, &p); err != nil {
				return apperr.Wrap(apperr.MalformedMessage, "invalid joinGame payload", err)
			}
			t.Variant, t.JoinGame = TeamJoinGame, &p
		case TeamSubmitAnswer:
			var p SubmitAnswerPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return apperr.Wrap(apperr.MalformedMessage, "invalid submitAnswer payload", err)
			}
			t.Variant, t.SubmitAnswer = TeamSubmitAnswer, &p
		default:
			return apperr.New(apperr.MalformedMessage, fmt.Sprintf("unknown team variant %q", key))
		}
	}
	return nil
}

// ClientFrame is the top-level externally-tagged envelope: exactly one
// of Host, Team, Watcher is set.
type ClientFrame struct {
	Host    *HostFrame    `json:"host,omitempty"`
	Team    *TeamFrame    `json:"team,omitempty"`
	Watcher *WatcherFrame `json:"watcher,omitempty"`
}

// Decode parses a single inbound frame. It fails with MalformedMessage
// on invalid JSON, on a frame without exactly one of host/team/watcher,
// on unknown host commands, team variants or watcher commands, and on
// JSON type mismatches. It does not check that a variant's fields are
// present: a missing field decodes as its zero value. It never interprets
// command semantics.
func Decode(data []byte) (*ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperr.Wrap(apperr.MalformedMessage, "invalid frame", err)
	}

	set := 0
	if f.Host != nil {
		set++
	}
	if f.Team != nil {
		set++
	}
	if f.Watcher != nil {
		set++
	}
	if set != 1 {
		return nil, apperr.New(apperr.MalformedMessage, "frame must have exactly one of host, team, watcher")
	}

	if f.Host != nil && !validHostType(f.Host.Type) {
		return nil, apperr.New(apperr.MalformedMessage, fmt.Sprintf("unknown host command %q", f.Host.Type))
	}
	if f.Watcher != nil && f.Watcher.Type != "subscribe" {
		return nil, apperr.New(apperr.MalformedMessage, fmt.Sprintf("unknown watcher command %q", f.Watcher.Type))
	}

	return &f, nil
}

func validHostType(t string) bool {
	switch t {
	case HostCreateGame, HostStartTimer, HostPauseTimer, HostResetTimer,
		HostNextQuestion, HostPrevQuestion, HostScoreAnswer, HostOverrideTeamScore,
		HostUpdateQuestionSettings, HostUpdateGameSettings:
		return true
	default:
		return false
	}
}
