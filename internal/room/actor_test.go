package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/quizroom/server/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor() *Actor {
	return NewActor("ABCD", DefaultGameSettings(), nil, zerolog.Nop())
}

func recvType(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case data := <-ch:
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		return env.Type
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// TestActorHostCreateGameBindsHostAndBroadcasts covers the createGame
// transition and the host-visible gameState broadcast it triggers.
func TestActorHostCreateGameBindsHostAndBroadcasts(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	hostOut := make(chan []byte, 8)
	a.Attach("host-1", hostOut)
	a.Dispatch("host-1", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})

	assert.Equal(t, protocol.TypeGameState, recvType(t, hostOut))
}

// A different session trying to claim a code whose host is still
// connected gets GameCodeConflict, and the existing host is unaffected.
func TestActorCreateGameConflictsWithConnectedHost(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	hostOut := make(chan []byte, 8)
	a.Attach("host-1", hostOut)
	a.Dispatch("host-1", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})
	recvType(t, hostOut)

	other := make(chan []byte, 8)
	a.Attach("host-2", other)
	a.Dispatch("host-2", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})

	assert.Equal(t, protocol.TypeError, recvType(t, other))
}

// A host that detaches and reconnects as a new session rebinds without
// conflict (simple rejoin-before-timeout case).
func TestActorHostRejoinAfterDetachSucceeds(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	hostOut := make(chan []byte, 8)
	a.Attach("host-1", hostOut)
	a.Dispatch("host-1", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})
	recvType(t, hostOut)

	a.Detach("host-1")

	newOut := make(chan []byte, 8)
	a.Attach("host-2", newOut)
	a.Dispatch("host-2", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})
	assert.Equal(t, protocol.TypeGameState, recvType(t, newOut))
}

func mustCreateGame(t *testing.T, a *Actor, sessionID string) chan []byte {
	out := make(chan []byte, 16)
	a.Attach(sessionID, out)
	a.Dispatch(sessionID, &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostCreateGame}})
	recvType(t, out)
	return out
}

func mustJoinTeam(t *testing.T, a *Actor, sessionID, teamName, hex string) chan []byte {
	out := make(chan []byte, 16)
	a.Attach(sessionID, out)
	a.Dispatch(sessionID, &protocol.ClientFrame{Team: &protocol.TeamFrame{
		Variant: protocol.TeamJoinGame,
		JoinGame: &protocol.JoinGamePayload{
			GameCode:    "ABCD",
			TeamName:    teamName,
			TeamMembers: []string{"Alice"},
			Color:       protocol.ColorDTO{HexCode: hex, Name: "c"},
		},
	}})
	recvType(t, out)
	return out
}

// TestActorScenarioS1EndToEnd drives S1 (single correct answer, no speed
// bonus) entirely through the actor's public channel API.
func TestActorScenarioS1EndToEnd(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	hostOut := mustCreateGame(t, a, "host-1")
	teamOut := mustJoinTeam(t, a, "team-1", "T1", "#ff8800")
	drain(hostOut)

	a.Dispatch("host-1", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostStartTimer}})
	assert.Equal(t, protocol.TypeGameState, recvType(t, hostOut))
	drain(teamOut)

	a.Dispatch("team-1", &protocol.ClientFrame{Team: &protocol.TeamFrame{
		Variant: protocol.TeamSubmitAnswer,
		SubmitAnswer: &protocol.SubmitAnswerPayload{
			QuestionNumber: 1,
			Content:        protocol.ContentDTO{Kind: protocol.ContentKindStandard, Text: "42"},
		},
	}})
	assert.Equal(t, protocol.TypeGameState, recvType(t, hostOut))
	drain(teamOut)

	a.Dispatch("host-1", &protocol.ClientFrame{Host: &protocol.HostFrame{
		Type:           protocol.HostScoreAnswer,
		QuestionNumber: 1,
		TeamName:       "T1",
		Score:          &protocol.ScoreComponentsDTO{QuestionPoints: 50},
	}})

	var gs protocol.GameStateMessage
	require.NoError(t, json.Unmarshal(<-hostOut, &gs))
	require.Len(t, gs.Teams, 1)
	assert.Equal(t, 50, gs.Teams[0].TotalScore)
}

// Only the bound host session may issue host commands; a team session
// attempting one is rejected without mutating state.
func TestActorNonHostCannotIssueHostCommands(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	mustCreateGame(t, a, "host-1")
	teamOut := mustJoinTeam(t, a, "team-1", "T1", "#ff8800")

	a.Dispatch("team-1", &protocol.ClientFrame{Host: &protocol.HostFrame{Type: protocol.HostStartTimer}})
	assert.Equal(t, protocol.TypeError, recvType(t, teamOut))
}

// A watcher subscribing receives the scoreboard snapshot directly.
func TestActorWatcherSubscribeReceivesScoreboard(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	mustCreateGame(t, a, "host-1")
	mustJoinTeam(t, a, "team-1", "T1", "#ff8800")

	watchOut := make(chan []byte, 8)
	a.Attach("watcher-1", watchOut)
	a.Dispatch("watcher-1", &protocol.ClientFrame{Watcher: &protocol.WatcherFrame{Type: "subscribe", GameCode: "ABCD"}})

	assert.Equal(t, protocol.TypeScoreboardData, recvType(t, watchOut))
}

func TestActorIsIdleReflectsConnections(t *testing.T) {
	a := newTestActor()
	go a.Run()
	defer a.Stop()

	require.Eventually(t, func() bool { return a.IsIdle() }, time.Second, time.Millisecond)

	hostOut := mustCreateGame(t, a, "host-1")
	_ = hostOut
	require.Eventually(t, func() bool { return !a.IsIdle() }, time.Second, time.Millisecond)

	a.Detach("host-1")
	require.Eventually(t, func() bool { return a.IsIdle() }, time.Second, time.Millisecond)
}
