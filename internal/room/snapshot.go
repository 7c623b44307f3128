package room

import "github.com/quizroom/server/internal/protocol"

func (q *Question) toDTO() protocol.QuestionDTO {
	answers := make([]protocol.TeamAnswerDTO, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Content == nil {
			// Skip placeholder (§4.5 recordSkip/closeSubmissionWindow):
			// the host-visible list contains only teams that submitted.
			continue
		}
		answers = append(answers, protocol.TeamAnswerDTO{
			TeamName: a.TeamName,
			Score:    scoreToDTO(a.Score),
			Content:  contentToDTO(a.Content),
		})
	}
	return protocol.QuestionDTO{
		Number:            q.Number,
		TimerDuration:     q.TimerDuration,
		QuestionPoints:    q.QuestionPoints,
		BonusIncrement:    q.BonusIncrement,
		Kind:              kindToDTO(q.Kind),
		MultipleChoice:    mcConfigToDTO(q.MultipleChoice),
		SpeedBonusEnabled: q.SpeedBonusEnabled,
		Answers:           answers,
	}
}

func (q *Question) toPublicDTO() protocol.PublicQuestionDTO {
	return protocol.PublicQuestionDTO{
		Number:            q.Number,
		TimerDuration:     q.TimerDuration,
		QuestionPoints:    q.QuestionPoints,
		BonusIncrement:    q.BonusIncrement,
		Kind:              kindToDTO(q.Kind),
		MultipleChoice:    mcConfigToDTO(q.MultipleChoice),
		SpeedBonusEnabled: q.SpeedBonusEnabled,
	}
}

// GameStateSnapshot builds the full host-visible room snapshot (§4.5
// Broadcast policy).
func (r *Room) GameStateSnapshot() protocol.GameStateMessage {
	questions := make([]protocol.QuestionDTO, 0, len(r.Questions))
	for _, q := range r.Questions {
		questions = append(questions, q.toDTO())
	}

	teams := make([]protocol.TeamDTO, 0, len(r.teams))
	for _, t := range r.Teams() {
		teams = append(teams, protocol.TeamDTO{
			TeamName:    t.Name,
			TeamMembers: t.Members,
			Color:       colorToDTO(t.Color),
			Connected:   t.Connected,
			TotalScore:  r.TeamAggregateScore(t.Name),
		})
	}

	return protocol.GameStateMessage{
		GameCode:              r.GameCode,
		Settings:              gameSettingsToDTO(r.Settings),
		Questions:             questions,
		CurrentQuestionNumber: r.CurrentQuestionNumber,
		TimerRunning:          r.TimerRunning,
		TimerSecondsRemaining: r.TimerSecondsRemaining,
		Teams:                 teams,
	}
}

// TeamGameStateSnapshot builds the team-restricted snapshot: only that
// team's own answer contents across every past question, the public
// current-question metadata, and the team's aggregate score.
func (r *Room) TeamGameStateSnapshot(teamName string) protocol.TeamGameStateMessage {
	answers := make([]protocol.OwnAnswerDTO, 0, len(r.Questions))
	for _, q := range r.Questions {
		a := q.answerFor(teamName)
		dto := protocol.OwnAnswerDTO{QuestionNumber: q.Number}
		if a != nil {
			dto.Content = contentToDTO(a.Content)
			dto.Score = scoreToDTO(a.Score)
		}
		answers = append(answers, dto)
	}

	return protocol.TeamGameStateMessage{
		GameCode:              r.GameCode,
		TeamName:              teamName,
		CurrentQuestionNumber: r.CurrentQuestionNumber,
		TimerRunning:          r.TimerRunning,
		TimerSecondsRemaining: r.TimerSecondsRemaining,
		CurrentQuestion:       r.CurrentQuestion().toPublicDTO(),
		Answers:               answers,
		AggregateScore:        r.TeamAggregateScore(teamName),
	}
}

// ScoreboardSnapshot builds the watcher-restricted broadcast: names,
// colors, totals, and connected flags only.
func (r *Room) ScoreboardSnapshot() protocol.ScoreboardDataMessage {
	entries := make([]protocol.ScoreboardEntryDTO, 0, len(r.teams))
	for _, t := range r.Teams() {
		entries = append(entries, protocol.ScoreboardEntryDTO{
			TeamName:   t.Name,
			Color:      colorToDTO(t.Color),
			TotalScore: r.TeamAggregateScore(t.Name),
			Connected:  t.Connected,
		})
	}
	return protocol.ScoreboardDataMessage{GameCode: r.GameCode, Teams: entries}
}
