package protocol

import (
	"testing"

	"github.com/quizroom/server/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHostCreateGame(t *testing.T) {
	frame, err := Decode([]byte(`{"host":{"type":"createGame","gameCode":"ABCD"}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Host)
	assert.Equal(t, HostCreateGame, frame.Host.Type)
	assert.Equal(t, "ABCD", frame.Host.GameCode)
}

func TestDecodeHostScoreAnswer(t *testing.T) {
	frame, err := Decode([]byte(`{"host":{"type":"scoreAnswer","questionNumber":1,"teamName":"T1","score":{"questionPoints":50,"bonusPoints":0,"speedBonusPoints":0,"overridePoints":0}}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Host.Score)
	assert.Equal(t, 50, frame.Host.Score.QuestionPoints)
}

func TestDecodeUnknownHostCommandIsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"host":{"type":"doSomethingElse"}}`))
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MalformedMessage, ae.Code)
}

func TestDecodeTeamValidateJoin(t *testing.T) {
	frame, err := Decode([]byte(`{"team":{"validateJoin":{"gameCode":"ABCD","teamName":"T1","color":{"hexCode":"#ff8800","name":"Orange"}}}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Team)
	assert.Equal(t, TeamValidateJoin, frame.Team.Variant)
	assert.Equal(t, "T1", frame.Team.ValidateJoin.TeamName)
}

func TestDecodeTeamSubmitAnswerStandard(t *testing.T) {
	frame, err := Decode([]byte(`{"team":{"submitAnswer":{"questionNumber":1,"content":{"kind":"standard","text":"Correct"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, TeamSubmitAnswer, frame.Team.Variant)
	assert.Equal(t, ContentKindStandard, frame.Team.SubmitAnswer.Content.Kind)
	assert.Equal(t, "Correct", frame.Team.SubmitAnswer.Content.Text)
}

func TestDecodeTeamFrameWithTwoKeysIsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"team":{"validateJoin":{},"joinGame":{}}}`))
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MalformedMessage, ae.Code)
}

func TestDecodeTeamFrameUnknownVariant(t *testing.T) {
	_, err := Decode([]byte(`{"team":{"doStuff":{}}}`))
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MalformedMessage, ae.Code)
}

func TestDecodeWatcherSubscribe(t *testing.T) {
	frame, err := Decode([]byte(`{"watcher":{"type":"subscribe","gameCode":"ABCD"}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Watcher)
	assert.Equal(t, "ABCD", frame.Watcher.GameCode)
}

func TestDecodeNoTopLevelKeyIsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{}`))
	require.Error(t, err)
}

func TestDecodeMultipleTopLevelKeysIsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"host":{"type":"createGame"},"watcher":{"type":"subscribe","gameCode":"ABCD"}}`))
	require.Error(t, err)
}

func TestDecodeInvalidJSONIsMalformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MalformedMessage, ae.Code)
}

func TestEncodeGameStateStampsType(t *testing.T) {
	msg := GameStateMessage{GameCode: "ABCD"}
	data, err := msg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"gameState"`)
}

func TestEncodeTimerTick(t *testing.T) {
	msg := TimerTickMessage{SecondsRemaining: 42}
	data, err := msg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"timerTick"`)
	assert.Contains(t, string(data), `"secondsRemaining":42`)
}
