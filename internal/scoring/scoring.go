// Package scoring implements the pure, side-effect-free arithmetic behind
// every score a client ever sees: component totals, duplicate-answer
// correctness propagation, and speed-bonus distribution. Nothing in this
// package touches a room, a session, or a clock — callers feed it
// snapshots and apply the results.
package scoring

import "strings"

// Components is the four-field score tuple carried by every answer.
type Components struct {
	QuestionPoints   int
	BonusPoints      int
	SpeedBonusPoints int
	OverridePoints   int
}

// Total sums the four independent fields. Totals may be negative.
func Total(c Components) int {
	return c.QuestionPoints + c.BonusPoints + c.SpeedBonusPoints + c.OverridePoints
}

// ContentKind tags which answer shape Content holds, mirroring the
// question kinds in the room model.
type ContentKind int

const (
	ContentStandard ContentKind = iota
	ContentMultiAnswer
	ContentMultipleChoice
)

// Content is the tagged answer payload used for equality comparisons.
// Only one of Text/List/Option is meaningful, selected by Kind.
type Content struct {
	Kind   ContentKind
	Text   string
	List   []string
	Option string
}

// Equal implements the §4.2 equality rule: Standard is case-sensitive,
// whitespace-trimmed string equality; MultipleChoice is option label
// identity; MultiAnswer is an ordered list of trimmed strings.
func (c Content) Equal(other Content) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case ContentStandard:
		return strings.TrimSpace(c.Text) == strings.TrimSpace(other.Text)
	case ContentMultipleChoice:
		return c.Option == other.Option
	case ContentMultiAnswer:
		if len(c.List) != len(other.List) {
			return false
		}
		for i := range c.List {
			if strings.TrimSpace(c.List[i]) != strings.TrimSpace(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ScoredAnswer is the minimal view of a TeamAnswer that scoring needs:
// its content (for equality grouping) and its score components. Callers
// pass a slice of these in submission order and apply the returned
// mutations back onto their own answer records.
type ScoredAnswer struct {
	TeamName string
	Content  Content
	Score    Components
}

// PropagateCorrectness finds every answer in answers whose content is
// equal (under Content.Equal) to the content of the trigger answer
// (identified by triggerTeam) and sets its QuestionPoints to newValue.
// It returns the indices it set (including the trigger's own index),
// whether or not their value differed before, or nil if no answer
// belongs to triggerTeam. Propagation is one-shot: it never copies
// BonusPoints or OverridePoints, and it does not chase transitive
// equality beyond the direct equality class of the trigger's content.
func PropagateCorrectness(answers []ScoredAnswer, triggerTeam string, newValue int) []int {
	var triggerContent Content
	found := false
	for _, a := range answers {
		if a.TeamName == triggerTeam {
			triggerContent = a.Content
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var changed []int
	for i := range answers {
		if answers[i].Content.Equal(triggerContent) {
			answers[i].Score.QuestionPoints = newValue
			changed = append(changed, i)
		}
	}
	return changed
}

// SpeedBonusSettings is the subset of GameSettings that
// DistributeSpeedBonus needs.
type SpeedBonusSettings struct {
	Enabled          bool
	NumTeams         int
	FirstPlacePoints int
}

// DistributeSpeedBonus recomputes SpeedBonusPoints for every answer in
// answers, in place, per §4.2(3). questionSpeedBonusEnabled is the
// per-question flag; both it and settings.Enabled must be true for any
// non-zero bonus to be assigned. answers must already be in
// server-observed submission order.
func DistributeSpeedBonus(answers []ScoredAnswer, questionSpeedBonusEnabled bool, settings SpeedBonusSettings) {
	if !questionSpeedBonusEnabled || !settings.Enabled {
		for i := range answers {
			answers[i].Score.SpeedBonusPoints = 0
		}
		return
	}

	correctIdx := make([]int, 0, len(answers))
	for i, a := range answers {
		if a.Score.QuestionPoints > 0 {
			correctIdx = append(correctIdx, i)
		}
	}

	k := settings.NumTeams
	if k > len(correctIdx) {
		k = len(correctIdx)
	}

	awarded := make(map[int]bool, k)
	for place := 1; place <= k; place++ {
		idx := correctIdx[place-1]
		bonus := (settings.FirstPlacePoints * (k - place + 1)) / k
		answers[idx].Score.SpeedBonusPoints = bonus
		awarded[idx] = true
	}

	for i := range answers {
		if !awarded[i] {
			answers[i].Score.SpeedBonusPoints = 0
		}
	}
}
