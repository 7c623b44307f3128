package room

import (
	"strings"

	"github.com/quizroom/server/internal/apperr"
	"github.com/quizroom/server/internal/protocol"
	"github.com/quizroom/server/internal/timer"
)

// handleHost dispatches a host command (§4.5, §6). createGame is the only
// variant reachable before a session has a bound role; every other
// variant requires the session to already be this room's bound host.
func (a *Actor) handleHost(sessionID string, f *protocol.HostFrame) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}

	if f.Type == protocol.HostCreateGame {
		a.handleCreateGame(sessionID, h)
		return
	}

	if h.role != RoleHost {
		a.sendError(sessionID, apperr.New(apperr.Unauthorized, "host session required"))
		return
	}

	var err error
	switch f.Type {
	case protocol.HostStartTimer:
		err = a.cmdStartTimer()
	case protocol.HostPauseTimer:
		err = a.cmdPauseTimer()
	case protocol.HostResetTimer:
		err = a.cmdResetTimer()
	case protocol.HostNextQuestion:
		a.cmdNextQuestion()
	case protocol.HostPrevQuestion:
		a.cmdPrevQuestion()
	case protocol.HostScoreAnswer:
		err = a.cmdScoreAnswer(f)
	case protocol.HostOverrideTeamScore:
		err = a.cmdOverrideTeamScore(f)
	case protocol.HostUpdateQuestionSettings:
		err = a.cmdUpdateQuestionSettings(f)
	case protocol.HostUpdateGameSettings:
		err = a.cmdUpdateGameSettings(f)
	}

	if err != nil {
		if ae, ok := apperr.As(err); ok {
			a.sendError(sessionID, ae)
		} else {
			a.sendError(sessionID, apperr.Wrap(apperr.Internal, "unexpected error", err))
		}
		return
	}
	a.broadcastAll()
}

// handleCreateGame binds the session as this room's host. A second,
// different session attempting to create/claim the same code while the
// current host is still attached is a GameCodeConflict (§7); the same
// session re-sending createGame, or creating after the prior host
// detached, is an idempotent rejoin.
func (a *Actor) handleCreateGame(sessionID string, h *sessionHandle) {
	if a.state.HostSessionID != "" && a.state.HostSessionID != sessionID {
		a.sendError(sessionID, apperr.New(apperr.GameCodeConflict, "this game already has a connected host"))
		return
	}
	a.state.HostSessionID = sessionID
	h.role = RoleHost
	a.broadcastAll()
}

func (a *Actor) cmdStartTimer() error {
	a.timer.Start()
	running := a.timer.State() == timer.Running
	return a.state.SetTimer(running, a.timer.SecondsRemaining())
}

func (a *Actor) cmdPauseTimer() error {
	a.timer.Pause()
	return a.state.SetTimer(false, a.timer.SecondsRemaining())
}

func (a *Actor) cmdResetTimer() error {
	duration := a.state.CurrentQuestion().TimerDuration
	a.timer.Reset(duration)
	return a.state.SetTimer(false, duration)
}

func (a *Actor) cmdNextQuestion() {
	q := a.state.AdvanceQuestion()
	a.timer.Reset(q.TimerDuration)
}

func (a *Actor) cmdPrevQuestion() {
	q := a.state.RetreatQuestion()
	a.timer.Reset(q.TimerDuration)
}

// cmdScoreAnswer applies the host's correctness mark and carries any
// change to bonusPoints through as a delta, keeping AdjustBonus's
// delta-based contract even though the wire payload sends an absolute
// new total (§4.3).
func (a *Actor) cmdScoreAnswer(f *protocol.HostFrame) error {
	if f.Score == nil {
		return apperr.New(apperr.MalformedMessage, "score is required")
	}
	q := a.state.Question(f.QuestionNumber)
	if q == nil {
		return apperr.New(apperr.GameNotFound, "no such question")
	}
	existing := q.answerFor(f.TeamName)
	if existing == nil {
		return apperr.New(apperr.GameNotFound, "no such answer")
	}
	if existing.Content == nil {
		return apperr.New(apperr.GameNotFound, "team did not submit for this question")
	}
	currentBonus := existing.Score.BonusPoints

	if err := a.state.SetCorrectness(f.TeamName, f.QuestionNumber, f.Score.QuestionPoints); err != nil {
		return err
	}
	if delta := f.Score.BonusPoints - currentBonus; delta != 0 {
		return a.state.AdjustBonus(f.TeamName, f.QuestionNumber, delta)
	}
	return nil
}

// cmdOverrideTeamScore implements §9's client-UI arithmetic authoritatively
// on the server: the host enters a target total for the cell, and the
// stored overridePoints is derived so the answer's Total equals it exactly.
func (a *Actor) cmdOverrideTeamScore(f *protocol.HostFrame) error {
	if f.TargetScore == nil {
		return apperr.New(apperr.MalformedMessage, "targetScore is required")
	}
	q := a.state.Question(f.QuestionNumber)
	if q == nil {
		return apperr.New(apperr.GameNotFound, "no such question")
	}
	existing := q.answerFor(f.TeamName)
	if existing == nil {
		return apperr.New(apperr.GameNotFound, "no such answer")
	}
	s := existing.Score
	newOverride := *f.TargetScore - (s.QuestionPoints + s.BonusPoints + s.SpeedBonusPoints)
	return a.state.SetOverride(f.TeamName, f.QuestionNumber, newOverride)
}

func (a *Actor) cmdUpdateQuestionSettings(f *protocol.HostFrame) error {
	if f.QuestionSettings == nil {
		return apperr.New(apperr.MalformedMessage, "questionSettings is required")
	}
	if err := a.state.UpdateQuestionSettings(f.QuestionNumber, QuestionSettingsFromDTO(*f.QuestionSettings)); err != nil {
		return err
	}
	if f.QuestionNumber == a.state.CurrentQuestionNumber {
		duration := a.state.CurrentQuestion().TimerDuration
		a.timer.Reset(duration)
		return a.state.SetTimer(false, duration)
	}
	return nil
}

func (a *Actor) cmdUpdateGameSettings(f *protocol.HostFrame) error {
	if f.GameSettings == nil {
		return apperr.New(apperr.MalformedMessage, "gameSettings is required")
	}
	a.state.UpdateGameSettings(GameSettingsFromDTO(*f.GameSettings))
	return nil
}

// handleTeam dispatches a team frame's single active variant (§4.5, §6).
func (a *Actor) handleTeam(sessionID string, f *protocol.TeamFrame) {
	switch f.Variant {
	case protocol.TeamValidateJoin:
		a.handleValidateJoin(sessionID, f.ValidateJoin)
	case protocol.TeamJoinGame:
		a.handleJoinGame(sessionID, f.JoinGame)
	case protocol.TeamSubmitAnswer:
		a.handleSubmitAnswer(sessionID, f.SubmitAnswer)
	}
}

func (a *Actor) handleValidateJoin(sessionID string, p *protocol.ValidateJoinPayload) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	if !strings.EqualFold(p.GameCode, a.state.GameCode) {
		a.sendError(sessionID, apperr.New(apperr.GameNotFound, "no such game"))
		return
	}

	if existing := a.state.TeamByName(p.TeamName); existing != nil {
		if existing.Connected {
			a.sendError(sessionID, apperr.New(apperr.NameConflict, "a team with this name is already connected"))
			return
		}
		// A disconnected team of this name validates cleanly: it's a
		// rejoin and color is irrelevant to that check.
		a.ack(h)
		return
	}

	for _, t := range a.state.Teams() {
		if strings.EqualFold(t.Color.HexCode, p.Color.HexCode) {
			a.sendError(sessionID, apperr.New(apperr.ColorConflict, "color already taken in this room"))
			return
		}
	}
	a.ack(h)
}

func (a *Actor) ack(h *sessionHandle) {
	data, err := protocol.JoinValidatedMessage{}.Encode()
	if err != nil {
		return
	}
	a.send(h.outbox, data)
}

func (a *Actor) handleJoinGame(sessionID string, p *protocol.JoinGamePayload) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	if !strings.EqualFold(p.GameCode, a.state.GameCode) {
		a.sendError(sessionID, apperr.New(apperr.GameNotFound, "no such game"))
		return
	}

	team, err := a.state.CreateTeam(p.TeamName, p.TeamMembers, colorFromDTO(p.Color))
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			a.sendError(sessionID, ae)
		}
		return
	}

	h.role = RoleTeam
	h.teamName = team.Name
	a.broadcastAll()
}

func (a *Actor) handleSubmitAnswer(sessionID string, p *protocol.SubmitAnswerPayload) {
	h, ok := a.sessions[sessionID]
	if !ok || h.role != RoleTeam {
		a.sendError(sessionID, apperr.New(apperr.Unauthorized, "joined team session required"))
		return
	}

	q := a.state.Question(p.QuestionNumber)
	if q == nil {
		a.sendError(sessionID, apperr.New(apperr.GameNotFound, "no such question"))
		return
	}
	content := ContentFromDTO(p.Content)
	if !contentKindMatches(q, content) {
		a.sendError(sessionID, apperr.New(apperr.SubmissionClosed, "content kind does not match this question"))
		return
	}

	if err := a.state.RecordAnswer(h.teamName, p.QuestionNumber, content); err != nil {
		if ae, ok := apperr.As(err); ok {
			a.sendError(sessionID, ae)
		}
		return
	}
	a.broadcastAll()
}

// handleWatcher binds a session as a read-only scoreboard subscriber.
func (a *Actor) handleWatcher(sessionID string, f *protocol.WatcherFrame) {
	h, ok := a.sessions[sessionID]
	if !ok {
		return
	}
	if !strings.EqualFold(f.GameCode, a.state.GameCode) {
		a.sendError(sessionID, apperr.New(apperr.GameNotFound, "no such game"))
		return
	}
	h.role = RoleWatcher
	data, err := a.state.ScoreboardSnapshot().Encode()
	if err != nil {
		return
	}
	a.send(h.outbox, data)
}
