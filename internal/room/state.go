// Package room owns the per-game data model (C3) and the single-threaded
// actor that serializes every mutation of it (C5). The state in this file
// is never touched from more than one goroutine: state.go has no mutex of
// its own because actor.go is its only caller, exactly as §4.3 specifies
// ("the state object has no awareness of concurrency").
package room

import (
	"sort"
	"strings"
	"time"

	"github.com/quizroom/server/internal/apperr"
	"github.com/quizroom/server/internal/scoring"
)

// QuestionKind discriminates a question's answer shape.
type QuestionKind int

const (
	Standard QuestionKind = iota
	MultiAnswer
	MultipleChoice
)

// MultipleChoiceConfig configures a multipleChoice question.
type MultipleChoiceConfig struct {
	OptionType  string
	OptionCount int // 2..8
}

// Color is a team's (hexCode, name) pair. Unique per room.
type Color struct {
	HexCode string
	Name    string
}

func (c Color) key() string { return strings.ToLower(c.HexCode) }

// TeamAnswer is one team's answer within a question. Content is nil
// until the team submits.
type TeamAnswer struct {
	TeamName  string
	Score     scoring.Components
	Content   *scoring.Content
	submitted time.Time
}

// Question is one slot in the room's ordered question sequence.
type Question struct {
	Number            int
	TimerDuration     int
	QuestionPoints    int
	BonusIncrement    int
	Kind              QuestionKind
	MultipleChoice    *MultipleChoiceConfig
	SpeedBonusEnabled bool
	Answers           []*TeamAnswer // ordered by server-observed submission time
}

func (q *Question) answerFor(teamName string) *TeamAnswer {
	for _, a := range q.Answers {
		if strings.EqualFold(a.TeamName, teamName) {
			return a
		}
	}
	return nil
}

// GameSettings holds the defaults applied to newly created questions.
type GameSettings struct {
	DefaultTimerDuration       int
	DefaultQuestionPoints      int
	DefaultBonusIncrement      int
	DefaultQuestionKind        QuestionKind
	DefaultMultipleChoice      *MultipleChoiceConfig
	SpeedBonusEnabled          bool
	SpeedBonusNumTeams         int
	SpeedBonusFirstPlacePoints int
}

// DefaultGameSettings returns the baseline configuration a freshly
// created room starts with, before any host override.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		DefaultTimerDuration:       60,
		DefaultQuestionPoints:      50,
		DefaultBonusIncrement:      10,
		DefaultQuestionKind:        Standard,
		SpeedBonusEnabled:          false,
		SpeedBonusNumTeams:         3,
		SpeedBonusFirstPlacePoints: 0,
	}
}

// Team is a named participant group.
type Team struct {
	Name      string
	Members   []string
	Color     Color
	Connected bool
}

// Role is a session's bound identity within a room.
type Role int

const (
	RoleUnbound Role = iota
	RoleHost
	RoleTeam
	RoleWatcher
)

// SessionRef tracks which role a session is bound to and, for a team
// session, which team it speaks for.
type SessionRef struct {
	Role     Role
	TeamName string
}

// Room is the in-memory state for one active game (§3).
type Room struct {
	GameCode  string
	CreatedAt time.Time

	Settings GameSettings
	// Questions is indexed by Number-1; Number starts at 1.
	Questions             []*Question
	CurrentQuestionNumber int

	TimerRunning          bool
	TimerSecondsRemaining int

	teams    map[string]*Team // keyed by lowercase team name
	Sessions map[string]SessionRef

	HostSessionID string
}

// New creates a fresh room at the given code with the given defaults,
// and lazily materializes question 1.
func New(code string, settings GameSettings) *Room {
	r := &Room{
		GameCode:              code,
		CreatedAt:             time.Now(),
		Settings:              settings,
		CurrentQuestionNumber: 1,
		TimerSecondsRemaining: settings.DefaultTimerDuration,
		teams:                 make(map[string]*Team),
		Sessions:              make(map[string]SessionRef),
	}
	r.ensureQuestion(1)
	return r
}

func (r *Room) ensureQuestion(number int) *Question {
	for len(r.Questions) < number {
		n := len(r.Questions) + 1
		r.Questions = append(r.Questions, &Question{
			Number:            n,
			TimerDuration:     r.Settings.DefaultTimerDuration,
			QuestionPoints:    r.Settings.DefaultQuestionPoints,
			BonusIncrement:    r.Settings.DefaultBonusIncrement,
			Kind:              r.Settings.DefaultQuestionKind,
			MultipleChoice:    r.Settings.DefaultMultipleChoice,
			SpeedBonusEnabled: r.Settings.SpeedBonusEnabled,
		})
	}
	return r.Questions[number-1]
}

// CurrentQuestion returns the active question, materializing it if this
// is the first time CurrentQuestionNumber has reached it.
func (r *Room) CurrentQuestion() *Question {
	return r.ensureQuestion(r.CurrentQuestionNumber)
}

// Question returns question n, or nil if it has never been reached.
func (r *Room) Question(n int) *Question {
	if n < 1 || n > len(r.Questions) {
		return nil
	}
	return r.Questions[n-1]
}

// Teams returns every team, sorted by name for deterministic snapshots.
func (r *Room) Teams() []*Team {
	out := make([]*Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TeamByName looks up a team case-insensitively.
func (r *Room) TeamByName(name string) *Team {
	return r.teams[strings.ToLower(name)]
}

// TeamAggregateScore sums scoring.Total across every question the team
// has an answer record for (§3 Team aggregate score).
func (r *Room) TeamAggregateScore(teamName string) int {
	total := 0
	for _, q := range r.Questions {
		if a := q.answerFor(teamName); a != nil {
			total += scoring.Total(a.Score)
		}
	}
	return total
}

// CreateTeam registers a new team, or re-associates an existing
// disconnected team of the same name (rejoin). Enforces Invariant 1:
// team names and colors are unique within a room.
func (r *Room) CreateTeam(name string, members []string, color Color) (*Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.NameConflict, "team name must not be empty")
	}

	key := strings.ToLower(name)
	if existing, ok := r.teams[key]; ok {
		if existing.Connected {
			return nil, apperr.New(apperr.NameConflict, "a team with this name is already connected")
		}
		// Rejoin: re-use stored members/color, flip connected back on.
		existing.Connected = true
		return existing, nil
	}

	if len(members) == 0 {
		return nil, apperr.New(apperr.NameConflict, "team must have at least one member")
	}

	for _, t := range r.teams {
		if t.Color.key() == color.key() {
			return nil, apperr.New(apperr.ColorConflict, "color already taken in this room")
		}
	}

	t := &Team{Name: name, Members: members, Color: color, Connected: true}
	r.teams[key] = t
	return t, nil
}

// RenameTeam is intentionally unsupported: §4.3 lists it only to record
// that renaming is disallowed once a team has joined, since the team
// name is the stable key every reconnect and scoreboard row hangs off.
func (r *Room) RenameTeam(oldName, newName string) error {
	return apperr.New(apperr.NameConflict, "renaming a team after it has joined is not supported")
}

// RemoveTeam deletes a team entirely (host kick), freeing its name and
// color for reuse.
func (r *Room) RemoveTeam(name string) error {
	key := strings.ToLower(name)
	if _, ok := r.teams[key]; !ok {
		return apperr.New(apperr.GameNotFound, "no such team")
	}
	delete(r.teams, key)
	return nil
}

// SetTeamConnected flips a team's connected flag, used on session
// attach/detach without destroying its accumulated answers.
func (r *Room) SetTeamConnected(name string, connected bool) {
	if t := r.TeamByName(name); t != nil {
		t.Connected = connected
	}
}

// RecordAnswer accepts a team's submission for questionNumber. Enforces
// Invariant 4 (answer exists iff submitted during the open window): it
// is accepted only while the timer is running for that exact question
// and the team has no prior content for it.
func (r *Room) RecordAnswer(teamName string, questionNumber int, content scoring.Content) error {
	if r.TeamByName(teamName) == nil {
		return apperr.New(apperr.GameNotFound, "no such team")
	}
	if !r.TimerRunning || questionNumber != r.CurrentQuestionNumber {
		return apperr.New(apperr.SubmissionClosed, "the submission window for this question is closed")
	}

	q := r.CurrentQuestion()
	if a := q.answerFor(teamName); a != nil && a.Content != nil {
		return apperr.New(apperr.SubmissionClosed, "this team already submitted for this question")
	}

	if a := q.answerFor(teamName); a != nil {
		a.Content = &content
		a.submitted = time.Now()
		return nil
	}

	q.Answers = append(q.Answers, &TeamAnswer{
		TeamName:  teamName,
		Content:   &content,
		submitted: time.Now(),
	})
	return nil
}

// recordSkip synthesizes an implicit empty submission for a team that
// never answered before the timer expired (§4.5 team-side transitions).
// The resulting TeamAnswer has nil Content, so it never counts toward
// correctness propagation or speed bonus, yet still occupies the team's
// per-question slot for the team-visible history in §3.
func (r *Room) recordSkip(teamName string, questionNumber int) {
	q := r.Question(questionNumber)
	if q == nil || q.answerFor(teamName) != nil {
		return
	}
	q.Answers = append(q.Answers, &TeamAnswer{TeamName: teamName, submitted: time.Now()})
}

// SetCorrectness sets a team's questionPoints for the given question and
// propagates the mark to every answer with equal content (§4.2(2)),
// then re-runs the speed-bonus distribution for the question.
func (r *Room) SetCorrectness(teamName string, questionNumber int, value int) error {
	q := r.Question(questionNumber)
	if q == nil {
		return apperr.New(apperr.GameNotFound, "no such question")
	}
	existing := q.answerFor(teamName)
	if existing == nil {
		return apperr.New(apperr.GameNotFound, "no such answer")
	}
	if existing.Content == nil {
		return apperr.New(apperr.GameNotFound, "team did not submit for this question")
	}

	scored := toScoredAnswers(q)
	scoring.PropagateCorrectness(scored, existing.TeamName, value)
	for i, a := range q.Answers {
		if a.Content == nil {
			// Skip placeholders never take part in propagation.
			scored[i].Score.QuestionPoints = a.Score.QuestionPoints
		}
	}
	applyScoredAnswers(q, scored)

	r.redistributeSpeedBonus(q)
	return nil
}

// AdjustBonus applies a +/- delta (in increments of the question's
// bonusIncrement) to a team's bonusPoints, then re-runs the speed-bonus
// distribution (bonus changes never affect correctness, but the total
// they feed into does).
func (r *Room) AdjustBonus(teamName string, questionNumber int, delta int) error {
	q := r.Question(questionNumber)
	if q == nil {
		return apperr.New(apperr.GameNotFound, "no such question")
	}
	a := q.answerFor(teamName)
	if a == nil {
		return apperr.New(apperr.GameNotFound, "no such answer")
	}
	a.Score.BonusPoints += delta
	r.redistributeSpeedBonus(q)
	return nil
}

// SetOverride sets a team's overridePoints for the given question so
// that the answer's Total equals exactly the host-entered target; the
// caller (room actor) is responsible for computing the delta per the
// newOverride = target - (qp+bp+sp) arithmetic in §9, since that
// arithmetic depends on the instant the edit was committed, not on
// state this method owns.
func (r *Room) SetOverride(teamName string, questionNumber int, overridePoints int) error {
	q := r.Question(questionNumber)
	if q == nil {
		return apperr.New(apperr.GameNotFound, "no such question")
	}
	a := q.answerFor(teamName)
	if a == nil {
		return apperr.New(apperr.GameNotFound, "no such answer")
	}
	a.Score.OverridePoints = overridePoints
	return nil
}

// QuestionSettingsUpdate is the mutable subset of Question fields
// updateQuestionSettings may change.
type QuestionSettingsUpdate struct {
	TimerDuration     int
	QuestionPoints    int
	BonusIncrement    int
	Kind              QuestionKind
	MultipleChoice    *MultipleChoiceConfig
	SpeedBonusEnabled bool
}

// UpdateQuestionSettings mutates a question's configuration. Rejected
// with SettingsLocked if the question has already received any answer
// (Invariant 5), leaving state unchanged.
func (r *Room) UpdateQuestionSettings(questionNumber int, update QuestionSettingsUpdate) error {
	q := r.ensureQuestion(questionNumber)
	if len(q.Answers) > 0 {
		return apperr.New(apperr.SettingsLocked, "question already has answers")
	}

	q.TimerDuration = update.TimerDuration
	q.QuestionPoints = update.QuestionPoints
	q.BonusIncrement = update.BonusIncrement
	q.Kind = update.Kind
	q.MultipleChoice = update.MultipleChoice
	q.SpeedBonusEnabled = update.SpeedBonusEnabled

	if questionNumber == r.CurrentQuestionNumber {
		r.TimerSecondsRemaining = q.TimerDuration
	}
	return nil
}

// UpdateGameSettings replaces the room's defaults. Already-materialized
// questions are untouched; only questions created afterward pick up the
// new defaults.
func (r *Room) UpdateGameSettings(settings GameSettings) {
	r.Settings = settings
}

// AdvanceQuestion moves to the next question, appending a fresh one
// seeded from settings if this advances past the last question.
func (r *Room) AdvanceQuestion() *Question {
	r.CurrentQuestionNumber++
	q := r.ensureQuestion(r.CurrentQuestionNumber)
	r.TimerRunning = false
	r.TimerSecondsRemaining = q.TimerDuration
	return q
}

// RetreatQuestion moves to the previous question. No-op at question 1.
func (r *Room) RetreatQuestion() *Question {
	if r.CurrentQuestionNumber > 1 {
		r.CurrentQuestionNumber--
	}
	q := r.CurrentQuestion()
	r.TimerRunning = false
	r.TimerSecondsRemaining = q.TimerDuration
	return q
}

// SetTimer is the bridge the timer component (C4) and the room actor use
// to reflect countdown state into room state, enforcing Invariants 2-3:
// secondsRemaining stays within [0, duration], and running implies a
// strictly positive remainder.
func (r *Room) SetTimer(running bool, secondsRemaining int) error {
	duration := r.CurrentQuestion().TimerDuration
	if secondsRemaining < 0 || secondsRemaining > duration {
		return apperr.New(apperr.Internal, "timer seconds out of range")
	}
	if running && secondsRemaining == 0 {
		return apperr.New(apperr.Internal, "timer cannot run with zero seconds remaining")
	}
	wasRunning := r.TimerRunning
	r.TimerRunning = running
	r.TimerSecondsRemaining = secondsRemaining

	if wasRunning && !running && secondsRemaining == 0 {
		r.closeSubmissionWindow()
	}
	return nil
}

// closeSubmissionWindow synthesizes empty submissions for every team
// that never answered the just-closed question (§4.5).
func (r *Room) closeSubmissionWindow() {
	q := r.CurrentQuestion()
	for _, t := range r.Teams() {
		r.recordSkip(t.Name, q.Number)
	}
}

func (r *Room) redistributeSpeedBonus(q *Question) {
	scored := toScoredAnswers(q)
	scoring.DistributeSpeedBonus(scored, q.SpeedBonusEnabled, scoring.SpeedBonusSettings{
		Enabled:          r.Settings.SpeedBonusEnabled,
		NumTeams:         r.Settings.SpeedBonusNumTeams,
		FirstPlacePoints: r.Settings.SpeedBonusFirstPlacePoints,
	})
	applyScoredAnswers(q, scored)
}

func toScoredAnswers(q *Question) []scoring.ScoredAnswer {
	out := make([]scoring.ScoredAnswer, 0, len(q.Answers))
	for _, a := range q.Answers {
		var content scoring.Content
		if a.Content != nil {
			content = *a.Content
		}
		out = append(out, scoring.ScoredAnswer{TeamName: a.TeamName, Content: content, Score: a.Score})
	}
	return out
}

func applyScoredAnswers(q *Question, scored []scoring.ScoredAnswer) {
	for i, s := range scored {
		q.Answers[i].Score = s.Score
	}
}
