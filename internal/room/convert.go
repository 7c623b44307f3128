package room

import (
	"github.com/quizroom/server/internal/protocol"
	"github.com/quizroom/server/internal/scoring"
)

func kindToDTO(k QuestionKind) protocol.QuestionKindDTO {
	switch k {
	case MultiAnswer:
		return protocol.QuestionKindMultiAnswer
	case MultipleChoice:
		return protocol.QuestionKindMultipleChoice
	default:
		return protocol.QuestionKindStandard
	}
}

func kindFromDTO(k protocol.QuestionKindDTO) QuestionKind {
	switch k {
	case protocol.QuestionKindMultiAnswer:
		return MultiAnswer
	case protocol.QuestionKindMultipleChoice:
		return MultipleChoice
	default:
		return Standard
	}
}

func mcConfigToDTO(c *MultipleChoiceConfig) *protocol.MultipleChoiceConfigDTO {
	if c == nil {
		return nil
	}
	return &protocol.MultipleChoiceConfigDTO{OptionType: c.OptionType, OptionCount: c.OptionCount}
}

func mcConfigFromDTO(c *protocol.MultipleChoiceConfigDTO) *MultipleChoiceConfig {
	if c == nil {
		return nil
	}
	return &MultipleChoiceConfig{OptionType: c.OptionType, OptionCount: c.OptionCount}
}

func colorToDTO(c Color) protocol.ColorDTO {
	return protocol.ColorDTO{HexCode: c.HexCode, Name: c.Name}
}

func colorFromDTO(c protocol.ColorDTO) Color {
	return Color{HexCode: c.HexCode, Name: c.Name}
}

func scoreToDTO(s scoring.Components) protocol.ScoreComponentsDTO {
	return protocol.ScoreComponentsDTO{
		QuestionPoints:   s.QuestionPoints,
		BonusPoints:      s.BonusPoints,
		SpeedBonusPoints: s.SpeedBonusPoints,
		OverridePoints:   s.OverridePoints,
	}
}

func scoreFromDTO(s protocol.ScoreComponentsDTO) scoring.Components {
	return scoring.Components{
		QuestionPoints:   s.QuestionPoints,
		BonusPoints:      s.BonusPoints,
		SpeedBonusPoints: s.SpeedBonusPoints,
		OverridePoints:   s.OverridePoints,
	}
}

func contentToDTO(c *scoring.Content) *protocol.ContentDTO {
	if c == nil {
		return nil
	}
	dto := &protocol.ContentDTO{}
	switch c.Kind {
	case scoring.ContentMultiAnswer:
		dto.Kind = protocol.ContentKindMultiAnswer
		dto.List = c.List
	case scoring.ContentMultipleChoice:
		dto.Kind = protocol.ContentKindMultipleChoice
		dto.Option = c.Option
	default:
		dto.Kind = protocol.ContentKindStandard
		dto.Text = c.Text
	}
	return dto
}

// ContentFromDTO converts a wire content payload into the internal
// scoring.Content the room mutators operate on.
func ContentFromDTO(c protocol.ContentDTO) scoring.Content {
	switch c.Kind {
	case protocol.ContentKindMultiAnswer:
		return scoring.Content{Kind: scoring.ContentMultiAnswer, List: c.List}
	case protocol.ContentKindMultipleChoice:
		return scoring.Content{Kind: scoring.ContentMultipleChoice, Option: c.Option}
	default:
		return scoring.Content{Kind: scoring.ContentStandard, Text: c.Text}
	}
}

// contentKindMatches reports whether submitted content's tag matches the
// question's configured kind, part of submitAnswer's acceptance test in
// §4.5.
func contentKindMatches(q *Question, c scoring.Content) bool {
	switch q.Kind {
	case MultiAnswer:
		return c.Kind == scoring.ContentMultiAnswer
	case MultipleChoice:
		return c.Kind == scoring.ContentMultipleChoice
	default:
		return c.Kind == scoring.ContentStandard
	}
}

func gameSettingsToDTO(s GameSettings) protocol.GameSettingsDTO {
	return protocol.GameSettingsDTO{
		DefaultTimerDuration:    s.DefaultTimerDuration,
		DefaultQuestionPoints:   s.DefaultQuestionPoints,
		DefaultBonusIncrement:   s.DefaultBonusIncrement,
		DefaultQuestionKind:     kindToDTO(s.DefaultQuestionKind),
		DefaultMultipleChoice:   mcConfigToDTO(s.DefaultMultipleChoice),
		SpeedBonusEnabled:       s.SpeedBonusEnabled,
		SpeedBonusNumTeams:      s.SpeedBonusNumTeams,
		SpeedBonusFirstPlacePts: s.SpeedBonusFirstPlacePoints,
	}
}

// GameSettingsFromDTO converts a wire game-settings payload into the
// internal representation used by UpdateGameSettings.
func GameSettingsFromDTO(s protocol.GameSettingsDTO) GameSettings {
	return GameSettings{
		DefaultTimerDuration:       s.DefaultTimerDuration,
		DefaultQuestionPoints:      s.DefaultQuestionPoints,
		DefaultBonusIncrement:      s.DefaultBonusIncrement,
		DefaultQuestionKind:        kindFromDTO(s.DefaultQuestionKind),
		DefaultMultipleChoice:      mcConfigFromDTO(s.DefaultMultipleChoice),
		SpeedBonusEnabled:          s.SpeedBonusEnabled,
		SpeedBonusNumTeams:         s.SpeedBonusNumTeams,
		SpeedBonusFirstPlacePoints: s.SpeedBonusFirstPlacePts,
	}
}

// QuestionSettingsFromDTO converts a wire question-settings payload into
// the internal update struct used by UpdateQuestionSettings.
func QuestionSettingsFromDTO(s protocol.QuestionSettingsDTO) QuestionSettingsUpdate {
	return QuestionSettingsUpdate{
		TimerDuration:     s.TimerDuration,
		QuestionPoints:    s.QuestionPoints,
		BonusIncrement:    s.BonusIncrement,
		Kind:              kindFromDTO(s.Kind),
		MultipleChoice:    mcConfigFromDTO(s.MultipleChoice),
		SpeedBonusEnabled: s.SpeedBonusEnabled,
	}
}
