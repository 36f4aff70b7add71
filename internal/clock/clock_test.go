package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-web/internal/rules"
)

func TestNewClockIsStopped(t *testing.T) {
	c := New(TimeControl{White: 600, Black: 600, Increment: 5})
	assert.False(t, c.Running())
	assert.False(t, c.Tick(rules.White), "tick while stopped")
	assert.Equal(t, 600, c.Remaining(rules.White))
}

func TestStartPauseAreIdempotent(t *testing.T) {
	c := New(TimeControl{White: 60, Black: 60})
	assert.True(t, c.Start(false))
	assert.False(t, c.Start(false))
	assert.True(t, c.Pause())
	assert.False(t, c.Pause())
	assert.False(t, c.Start(true), "game over blocks start")
	assert.False(t, c.Running())
}

func TestTickDecrementsSideToMove(t *testing.T) {
	c := New(TimeControl{White: 10, Black: 20})
	c.Start(false)
	c.Tick(rules.White)
	c.Tick(rules.Black)
	c.Tick(rules.Black)
	assert.Equal(t, 9, c.Remaining(rules.White))
	assert.Equal(t, 18, c.Remaining(rules.Black))
}

func TestTickExpiresExactlyOnce(t *testing.T) {
	c := New(TimeControl{White: 2, Black: 60})
	c.Start(false)
	assert.False(t, c.Tick(rules.White))
	assert.True(t, c.Tick(rules.White))
	assert.False(t, c.Running())
	assert.Equal(t, 0, c.Remaining(rules.White))

	assert.False(t, c.Tick(rules.White), "stopped clock ignores ticks")
	assert.False(t, c.Start(false), "fallen flag blocks restart")
	assert.Equal(t, 0, c.Remaining(rules.White), "never negative")
}

func TestCreditIncrementOnlyWhileRunning(t *testing.T) {
	c := New(TimeControl{White: 598, Black: 600, Increment: 5})
	assert.False(t, c.CreditIncrement(rules.White))
	assert.Equal(t, 598, c.Remaining(rules.White))

	c.Start(false)
	assert.True(t, c.CreditIncrement(rules.White))
	assert.Equal(t, 603, c.Remaining(rules.White))
	assert.Equal(t, 600, c.Remaining(rules.Black))
}

func TestRestoreIsStopped(t *testing.T) {
	c := Restore(State{White: 30, Black: 40, Increment: 2, Running: true})
	assert.False(t, c.Running())
	assert.Equal(t, State{White: 30, Black: 40, Increment: 2}, c.State())

	flagged := Restore(State{White: 0, Black: 40})
	assert.False(t, flagged.Start(false))
}

func TestParseTimeControl(t *testing.T) {
	tc, err := ParseTimeControl("10+5")
	require.NoError(t, err)
	assert.Equal(t, TimeControl{White: 600, Black: 600, Increment: 5}, tc)
	assert.Equal(t, "600+5", tc.String())

	tc, err = ParseTimeControl("3")
	require.NoError(t, err)
	assert.Equal(t, 180, tc.White)

	_, err = ParseTimeControl("x+1")
	assert.ErrorIs(t, err, ErrInvalidTimeControl)
	_, err = ParseTimeControl("0+1")
	assert.ErrorIs(t, err, ErrInvalidTimeControl)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "10:00", FormatSeconds(600))
	assert.Equal(t, "0:05", FormatSeconds(5))
	assert.Equal(t, "0:00", FormatSeconds(-3))
}

func TestTickerStartStop(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)
	defer tk.Close()

	var calls atomic.Int32
	gen := tk.Start(func(g uint64) { calls.Add(1) })
	assert.Equal(t, gen, tk.Current())
	assert.True(t, tk.Active())

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	tk.Stop()
	assert.False(t, tk.Active())
	assert.NotEqual(t, gen, tk.Current(), "stop retires the generation")
}

func TestTickerRestartRetiresOldGeneration(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)
	defer tk.Close()

	first := tk.Start(func(uint64) {})
	second := tk.Start(func(uint64) {})
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, tk.Current())
}

func TestTickerCloseWaitsForWorker(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	var calls atomic.Int32
	tk.Start(func(uint64) { calls.Add(1) })
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)
	tk.Close()
	n := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no callbacks after Close")
}
