package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-web/internal/archive"
	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/msgcat"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return kinds(p.events)
}

type recordingArchiver struct {
	mu      sync.Mutex
	results []archive.Result
}

func (a *recordingArchiver) SaveResult(_ context.Context, res archive.Result) error {
	a.mu.Lock()
	a.results = append(a.results, res)
	a.mu.Unlock()
	return nil
}

func TestControllerPersistsToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	kv, err := store.NewRedisKV(ctx, fmt.Sprintf("redis://%s/0", mr.Addr()), 0)
	require.NoError(t, err)
	defer kv.Close()

	w := store.NewWriter(kv, store.DefaultKey)
	c := NewController(New(Options{Now: fixedNow}), WithPersister(w), WithClock(fixedNow))

	c.Move("e2", "e4")
	c.Move("e7", "e5")
	c.Select("g1")
	c.Flip()
	final := c.Close()
	w.Close()

	rec, err := store.Load(ctx, kv, store.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"e4", "e5"}, rec.MoveHistory)
	assert.True(t, rec.OrientationFlipped)
	assert.Equal(t, final.GameID, rec.GameID)

	restored, err := FromRecord(rec, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, c.Snapshot().FEN, restored.Snapshot().FEN)
}

func TestControllerSkipsPersistForNoops(t *testing.T) {
	kv := store.NewMemoryKV()
	w := store.NewWriter(kv, "k")
	c := NewController(New(Options{}), WithPersister(w))

	c.Move("e2", "e5")
	c.Undo()
	c.Select("e2")
	w.Close()

	_, err := store.Load(context.Background(), kv, "k")
	assert.ErrorIs(t, err, store.ErrNoRecord)
	c.Close()
}

func TestControllerMessagesAndEvents(t *testing.T) {
	cat, err := msgcat.New("")
	require.NoError(t, err)
	pub := &recordingPublisher{}
	c := NewController(New(Options{}), WithPublisher(pub), WithMessages(cat))
	defer c.Close()

	_, events := c.Move("e2", "e4")
	require.Len(t, events, 1)
	assert.Equal(t, "White played e4", events[0].Message)

	c.Move("d7", "d5")
	_, events = c.Move("e4", "d5")
	require.Len(t, events, 1)
	assert.Equal(t, "White took a pawn with exd5", events[0].Message)

	assert.Equal(t, []EventKind{EventMoved, EventMoved, EventCaptured}, pub.kinds())

	_, events = c.ToggleClock()
	require.Len(t, events, 1)
	assert.Equal(t, "Clock running", events[0].Message)
	_, events = c.ToggleClock()
	assert.Equal(t, "Clock paused", events[0].Message)

	_, events = c.Reset()
	require.Len(t, events, 1)
	assert.Equal(t, "New game started ("+c.Snapshot().Label+")", events[0].Message)
}

func TestControllerArchivesFinishedGame(t *testing.T) {
	arch := &recordingArchiver{}
	pub := &recordingPublisher{}
	cat, err := msgcat.New("")
	require.NoError(t, err)
	c := NewController(New(Options{Now: fixedNow}), WithArchiver(arch), WithPublisher(pub), WithMessages(cat), WithClock(fixedNow))

	c.Move("f2", "f3")
	c.Move("e7", "e5")
	c.Move("g2", "g4")
	_, events := c.Move("d8", "h4")
	c.Close()

	require.Len(t, events, 3)
	assert.Equal(t, "Checkmate. Black wins.", events[2].Message)

	arch.mu.Lock()
	defer arch.mu.Unlock()
	require.Len(t, arch.results, 1)
	res := arch.results[0]
	assert.Equal(t, rules.ReasonCheckmate, res.Status.Reason)
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, res.MovesSAN)
	assert.Equal(t, "d8h4", res.MovesUCI[3])
	assert.Contains(t, res.PGN, "0-1")
}

func TestControllerTickerFollowsClock(t *testing.T) {
	tk := clock.NewTicker(2 * time.Millisecond)
	s := New(Options{TimeControl: clock.TimeControl{White: 3600, Black: 3600}})
	c := NewController(s, WithTicker(tk))
	defer c.Close()

	st, _ := c.ToggleClock()
	require.True(t, st.Clock.Running)
	assert.True(t, tk.Active())
	require.Eventually(t, func() bool { return c.Snapshot().Clock.White < 3595 }, 2*time.Second, time.Millisecond)

	st, _ = c.ToggleClock()
	assert.False(t, st.Clock.Running)
	assert.False(t, tk.Active())
	paused := c.Snapshot().Clock.White
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused, c.Snapshot().Clock.White, "no ticks once stopped")
}

func TestControllerPersistsTicks(t *testing.T) {
	kv := store.NewMemoryKV()
	w := store.NewWriter(kv, "k")
	tk := clock.NewTicker(2 * time.Millisecond)
	c := NewController(New(Options{TimeControl: clock.TimeControl{White: 3600, Black: 3600}}),
		WithPersister(w), WithTicker(tk))

	c.ToggleClock()
	require.Eventually(t, func() bool {
		rec, err := store.Load(context.Background(), kv, "k")
		return err == nil && rec.Clock != nil && rec.Clock.White < 3595
	}, 2*time.Second, 5*time.Millisecond, "running clock reaches the store without an intent")

	c.Close()
	w.Close()
	rec, err := store.Load(context.Background(), kv, "k")
	require.NoError(t, err)
	restored, err := FromRecord(rec, nil)
	require.NoError(t, err)
	assert.Equal(t, rec.Clock.White, restored.Snapshot().Clock.White)
	assert.False(t, restored.ClockRunning())
}

func TestControllerDiscardsStaleTick(t *testing.T) {
	tk := clock.NewTicker(time.Hour)
	c := NewController(New(Options{}), WithTicker(tk))
	defer c.Close()

	c.ToggleClock()
	gen := tk.Current()
	c.ToggleClock()
	c.ToggleClock()

	before := c.Snapshot().Clock
	c.onTick(gen)
	assert.Equal(t, before, c.Snapshot().Clock, "tick from a retired generation")

	c.onTick(tk.Current())
	assert.Equal(t, before.White-1, c.Snapshot().Clock.White)
}

func TestControllerTimeoutStopsTicker(t *testing.T) {
	tk := clock.NewTicker(time.Millisecond)
	pub := &recordingPublisher{}
	arch := &recordingArchiver{}
	c := NewController(New(Options{TimeControl: clock.TimeControl{White: 2, Black: 60}}),
		WithTicker(tk), WithPublisher(pub), WithArchiver(arch))

	c.ToggleClock()
	require.Eventually(t, func() bool { return c.Snapshot().GameOver != nil }, 2*time.Second, time.Millisecond)
	c.Close()

	st := c.Snapshot()
	assert.Equal(t, rules.ReasonTimeout, st.GameOver.Reason)
	assert.Equal(t, rules.Black, st.GameOver.Winner)
	assert.Equal(t, 0, st.Clock.White)
	assert.False(t, tk.Active())

	expired := 0
	for _, k := range pub.kinds() {
		if k == EventTimeExpired {
			expired++
		}
	}
	assert.Equal(t, 1, expired, "expiry reported exactly once")
	assert.Len(t, arch.results, 1)
}

func TestControllerSettingsErrors(t *testing.T) {
	c := NewController(New(Options{}))
	defer c.Close()

	_, _, err := c.SetBoardTheme("plaid")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	_, _, err = c.SetTimeControl(clock.TimeControl{White: -1, Black: 5})
	assert.ErrorIs(t, err, clock.ErrInvalidTimeControl)

	st, _, err := c.SetTimeControl(clock.TimeControl{White: 180, Black: 180, Increment: 2})
	require.NoError(t, err)
	assert.Equal(t, 180, st.Clock.White)

	name, body := c.Export()
	assert.Contains(t, name, "chess-game-")
	assert.Contains(t, body, `[TimeControl "180+2"]`)
}
