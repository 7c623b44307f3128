package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimerIsIdleWithFullDuration(t *testing.T) {
	tm := New(60)
	assert.Equal(t, Idle, tm.State())
	assert.Equal(t, 60, tm.SecondsRemaining())
}

func TestStartTicksDownEachSecond(t *testing.T) {
	tm := New(2)
	go tm.Start()

	ev := waitEvent(t, tm)
	assert.Equal(t, 1, ev.SecondsRemaining)
	assert.False(t, ev.Expired)

	ev = waitEvent(t, tm)
	assert.Equal(t, 0, ev.SecondsRemaining)
	assert.True(t, ev.Expired)
	assert.Equal(t, Expired, tm.State())
}

func TestPauseStopsTicking(t *testing.T) {
	tm := New(5)
	go tm.Start()
	waitEvent(t, tm)
	tm.Pause()
	assert.Equal(t, Paused, tm.State())

	select {
	case <-tm.Events():
		t.Fatal("expected no further ticks after pause")
	case <-time.After(1200 * time.Millisecond):
	}
}

func TestResetRestoresFullDuration(t *testing.T) {
	tm := New(5)
	go tm.Start()
	waitEvent(t, tm)
	require.Less(t, tm.SecondsRemaining(), 5)

	tm.Reset(5)
	assert.Equal(t, Idle, tm.State())
	assert.Equal(t, 5, tm.SecondsRemaining())
}

func TestStartFromExpiredResetsToFullDuration(t *testing.T) {
	tm := New(1)
	go tm.Start()
	ev := waitEvent(t, tm)
	require.True(t, ev.Expired)
	require.Equal(t, Expired, tm.State())

	go tm.Start()
	assert.Eventually(t, func() bool { return tm.State() == Running }, time.Second, 10*time.Millisecond)
}

func TestStartIsNoopWhenAlreadyRunning(t *testing.T) {
	tm := New(5)
	go tm.Start()
	assert.Eventually(t, func() bool { return tm.State() == Running }, time.Second, 10*time.Millisecond)
	tm.Start()
	assert.Equal(t, Running, tm.State())
}

func waitEvent(t *testing.T, tm *Timer) Event {
	t.Helper()
	select {
	case ev := <-tm.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return Event{}
	}
}
