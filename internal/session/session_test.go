package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/store"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }

func newSession(t *testing.T, opts ...func(*Options)) *Session {
	t.Helper()
	o := Options{TimeControl: DefaultTimeControl, Now: fixedNow}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

func playAll(t *testing.T, s *Session, moves ...string) []Event {
	t.Helper()
	var all []Event
	for _, mv := range moves {
		events := s.AttemptMove(rules.Square(mv[:2]), rules.Square(mv[2:4]))
		require.NotEmptyf(t, events, "move %s rejected", mv)
		all = append(all, events...)
	}
	return all
}

func encoded(t *testing.T, s *Session) string {
	t.Helper()
	raw, err := store.Encode(s.Record())
	require.NoError(t, err)
	return raw
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestFirstMoveScenario(t *testing.T) {
	s := newSession(t)
	events := s.AttemptMove("e2", "e4")
	assert.Equal(t, []EventKind{EventMoved}, kinds(events))

	st := s.Snapshot()
	require.Len(t, st.Moves, 1)
	assert.Equal(t, "e4", st.Moves[0].Notation)
	assert.Equal(t, &Move{From: "e2", To: "e4"}, st.LastMove)
	assert.Empty(t, st.Captured.White)
	assert.Empty(t, st.Captured.Black)
	assert.False(t, st.Clock.Running)
	assert.Equal(t, 600, st.Clock.White)
	assert.Equal(t, rules.Black, st.Turn)
}

func TestIncrementCreditedWhileRunning(t *testing.T) {
	s := newSession(t, func(o *Options) { o.TimeControl = clock.TimeControl{White: 598, Black: 600, Increment: 5} })
	require.NotEmpty(t, s.ToggleClock())
	require.True(t, s.ClockRunning())

	playAll(t, s, "e2e4")
	assert.Equal(t, 603, s.Snapshot().Clock.White)
	assert.Equal(t, 600, s.Snapshot().Clock.Black)
}

func TestIncrementNotCreditedWhileStopped(t *testing.T) {
	s := newSession(t, func(o *Options) { o.TimeControl = clock.TimeControl{White: 598, Black: 600, Increment: 5} })
	playAll(t, s, "e2e4")
	assert.Equal(t, 598, s.Snapshot().Clock.White)
}

func TestCheckmateEndsGame(t *testing.T) {
	s := newSession(t)
	s.ToggleClock()
	events := playAll(t, s, "f2f3", "e7e5", "g2g4", "d8h4")

	last := events[len(events)-3:]
	assert.Equal(t, []EventKind{EventMoved, EventCheck, EventGameOver}, kinds(last))
	assert.Equal(t, rules.ReasonCheckmate, last[2].Reason)
	assert.Equal(t, rules.Black, last[2].Winner)

	assert.True(t, s.Over())
	assert.False(t, s.ClockRunning(), "clock forced stopped")

	before := encoded(t, s)
	assert.Nil(t, s.AttemptMove("a2", "a3"))
	assert.Nil(t, s.SelectSquare("a2"))
	assert.Nil(t, s.ToggleClock())
	assert.Nil(t, s.Tick())
	assert.Equal(t, before, encoded(t, s))
}

func TestIllegalAttemptsLeaveSessionUnchanged(t *testing.T) {
	s := newSession(t)
	playAll(t, s, "e2e4", "e7e5")
	s.SelectSquare("g1")
	before := encoded(t, s)
	snap := s.Snapshot()

	cases := [][2]rules.Square{
		{"e3", "e4"}, // empty
		{"e5", "e4"}, // opponent piece
		{"e4", "e5"}, // blocked
		{"g1", "g3"}, // not a destination
		{"zz", "e4"},
		{"e1", "e1"},
	}
	for _, tc := range cases {
		assert.Nil(t, s.AttemptMove(tc[0], tc[1]), "%s-%s", tc[0], tc[1])
	}
	assert.Equal(t, before, encoded(t, s))
	assert.Equal(t, snap, s.Snapshot(), "selection untouched too")
}

func TestRejectedDragKeepsSelection(t *testing.T) {
	s := newSession(t)
	s.SelectSquare("g1")
	snap := s.Snapshot()

	assert.Nil(t, s.DragDrop("e7", "e5"), "black cannot move first")
	assert.Nil(t, s.DragDrop("g1", "g4"))
	assert.Equal(t, snap, s.Snapshot())
	assert.Equal(t, rules.Square("g1"), s.Snapshot().Selection.Selected)

	require.NotEmpty(t, s.DragDrop("e2", "e4"))
	assert.Empty(t, s.Snapshot().Selection.Selected, "a committed drop clears the selection")
}

func TestUndoAllReturnsToInitialPosition(t *testing.T) {
	s := newSession(t)
	initial := s.Snapshot()
	playAll(t, s, "e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a5", "g1f3", "c8g4", "f1e2", "g4f3", "e2f3")
	require.Equal(t, []rules.PieceID{"bp", "bb"}, s.Snapshot().Captured.White)
	require.Equal(t, []rules.PieceID{"wp", "wn"}, s.Snapshot().Captured.Black)

	for i := 0; i < 11; i++ {
		require.Equal(t, []EventKind{EventUndo}, kinds(s.Undo()))
	}
	st := s.Snapshot()
	assert.Equal(t, initial.FEN, st.FEN)
	assert.Equal(t, initial.Pieces, st.Pieces)
	assert.Empty(t, st.Moves)
	assert.Empty(t, st.Captured.White)
	assert.Empty(t, st.Captured.Black)
	assert.Nil(t, st.LastMove)
}

func TestUndoOnEmptyHistoryIsNoop(t *testing.T) {
	s := newSession(t)
	before := encoded(t, s)
	assert.Nil(t, s.Undo())
	assert.Equal(t, before, encoded(t, s))
}

func TestUndoRestoresLastMoveAndDoesNotRefundTime(t *testing.T) {
	s := newSession(t, func(o *Options) { o.TimeControl = clock.TimeControl{White: 60, Black: 60} })
	s.ToggleClock()
	playAll(t, s, "e2e4", "e7e5")
	s.Tick()
	s.Tick()
	require.Equal(t, 58, s.Snapshot().Clock.White)

	events := s.Undo()
	require.Len(t, events, 1)
	assert.Equal(t, "e5", events[0].Move.Notation)
	assert.Equal(t, rules.Black, events[0].Side)

	st := s.Snapshot()
	assert.Equal(t, &Move{From: "e2", To: "e4"}, st.LastMove)
	assert.Equal(t, 58, st.Clock.White)
	assert.Equal(t, rules.Black, st.Turn)
}

func TestCapturedMatchesReplay(t *testing.T) {
	s := newSession(t)
	playAll(t, s, "e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a2", "a1a2")
	st := s.Snapshot()
	assert.Equal(t, []rules.PieceID{"bp", "bq"}, st.Captured.White)
	assert.Equal(t, []rules.PieceID{"wp", "wp"}, st.Captured.Black)
	assert.Equal(t, deriveCaptured(st.Moves), st.Captured)

	s.Undo()
	s.Undo()
	assert.Equal(t, []rules.PieceID{"bp"}, s.Snapshot().Captured.White)
	assert.Equal(t, []rules.PieceID{"wp"}, s.Snapshot().Captured.Black)
}

func TestUndoAfterCheckmateReopensGame(t *testing.T) {
	s := newSession(t)
	playAll(t, s, "f2f3", "e7e5", "g2g4", "d8h4")
	require.True(t, s.Over())

	s.Undo()
	assert.False(t, s.Over())
	assert.False(t, s.ClockRunning())
	assert.NotEmpty(t, s.AttemptMove("d8", "h4"))
}

func TestSelectSquareFlow(t *testing.T) {
	s := newSession(t)

	assert.Nil(t, s.SelectSquare("e7"), "opponent piece")
	assert.Empty(t, s.Snapshot().Selection.Selected)
	s.SelectSquare("e5")
	assert.Empty(t, s.Snapshot().Selection.Selected, "empty square")

	s.SelectSquare("E2")
	sel := s.Snapshot().Selection
	assert.Equal(t, rules.Square("e2"), sel.Selected)
	assert.Equal(t, []rules.Square{"e3", "e4"}, sel.Destinations)

	s.SelectSquare("e2")
	assert.Empty(t, s.Snapshot().Selection.Selected, "reselect deselects")

	s.SelectSquare("g1")
	s.SelectSquare("e2")
	assert.Equal(t, rules.Square("e2"), s.Snapshot().Selection.Selected, "own piece switches selection")

	s.SelectSquare("a6")
	assert.Equal(t, rules.Square("e2"), s.Snapshot().Selection.Selected, "non-destination keeps selection")

	events := s.SelectSquare("e4")
	assert.Equal(t, []EventKind{EventMoved}, kinds(events))
	st := s.Snapshot()
	assert.Empty(t, st.Selection.Selected)
	assert.Len(t, st.Moves, 1)
}

func TestResetKeepsPresentationSettings(t *testing.T) {
	s := newSession(t)
	s.FlipOrientation()
	s.ToggleSound()
	_, err := s.SetBoardTheme("Blue")
	require.NoError(t, err)
	oldID := s.GameID()
	s.ToggleClock()
	playAll(t, s, "e2e4")

	events := s.Reset()
	assert.Equal(t, []EventKind{EventReset}, kinds(events))
	st := s.Snapshot()
	assert.True(t, st.Flipped)
	assert.True(t, st.SoundEnabled)
	assert.Equal(t, "blue", st.BoardTheme)
	assert.NotEqual(t, oldID, st.GameID)
	assert.NotEmpty(t, st.Label)
	assert.Empty(t, st.Moves)
	assert.False(t, st.Clock.Running)
	assert.Equal(t, 600, st.Clock.White)
}

func TestSetBoardThemeRejectsUnknown(t *testing.T) {
	s := newSession(t)
	_, err := s.SetBoardTheme("neon")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	assert.Equal(t, "classic", s.Snapshot().BoardTheme)
}

func TestSetTimeControl(t *testing.T) {
	s := newSession(t)
	_, err := s.SetTimeControl(clock.TimeControl{White: 300, Black: 300, Increment: 3})
	require.NoError(t, err)
	assert.Equal(t, 300, s.Snapshot().Clock.White, "applies before the first move")

	playAll(t, s, "e2e4")
	_, err = s.SetTimeControl(clock.TimeControl{White: 60, Black: 60})
	require.NoError(t, err)
	assert.Equal(t, 300, s.Snapshot().Clock.White, "deferred once a move is played")

	s.Reset()
	assert.Equal(t, 60, s.Snapshot().Clock.White)

	_, err = s.SetTimeControl(clock.TimeControl{White: 0, Black: 60})
	assert.ErrorIs(t, err, clock.ErrInvalidTimeControl)
}

func TestTimeExpiry(t *testing.T) {
	s := newSession(t, func(o *Options) { o.TimeControl = clock.TimeControl{White: 2, Black: 60} })
	s.ToggleClock()

	assert.Equal(t, []EventKind{EventTick}, kinds(s.Tick()))
	events := s.Tick()
	assert.Equal(t, []EventKind{EventTimeExpired, EventGameOver}, kinds(events))
	assert.Equal(t, rules.White, events[0].Side)
	assert.Equal(t, rules.ReasonTimeout, events[1].Reason)
	assert.Equal(t, rules.Black, events[1].Winner)

	assert.Nil(t, s.Tick())
	assert.Equal(t, 0, s.Snapshot().Clock.White)
	assert.Equal(t, "0-1", rules.ResultToken(s.Status()))
}

func TestSoundCues(t *testing.T) {
	s := newSession(t)
	events := playAll(t, s, "e2e4")
	assert.Empty(t, events[0].Sound)

	s.ToggleSound()
	events = playAll(t, s, "d7d5", "e4d5")
	assert.Equal(t, SoundMove, events[0].Sound)
	assert.Equal(t, SoundCapture, events[1].Sound)
}

func TestExport(t *testing.T) {
	s := newSession(t)
	playAll(t, s, "e2e4", "e7e5")
	name, pgn := s.Export(fixedNow())
	assert.Equal(t, "chess-game-2026-10-16.pgn", name)
	assert.Contains(t, pgn, "1. e4 e5 *")
	assert.Contains(t, pgn, `[TimeControl "600+0"]`)
}

func TestRecordRoundTrip(t *testing.T) {
	s := newSession(t, func(o *Options) { o.SoundEnabled = true; o.BoardTheme = "gray" })
	s.FlipOrientation()
	s.ToggleClock()
	playAll(t, s, "e2e4", "d7d5", "e4d5", "g8f6", "d5d6", "e7d6")
	s.Tick()
	s.SelectSquare("d1")

	rec := s.Record()
	raw, err := store.Encode(rec)
	require.NoError(t, err)
	decoded, err := store.Decode(raw)
	require.NoError(t, err)

	restored, err := FromRecord(decoded, fixedNow)
	require.NoError(t, err)

	want, got := s.Snapshot(), restored.Snapshot()
	assert.Equal(t, want.FEN, got.FEN)
	assert.Equal(t, want.Moves, got.Moves)
	assert.Equal(t, want.Captured, got.Captured)
	assert.Equal(t, want.LastMove, got.LastMove)
	assert.Equal(t, want.GameID, got.GameID)
	assert.Equal(t, want.Label, got.Label)
	assert.True(t, got.Flipped)
	assert.True(t, got.SoundEnabled)
	assert.Equal(t, "gray", got.BoardTheme)
	assert.Empty(t, got.Selection.Selected, "selection is not persisted")
	assert.False(t, got.Clock.Running, "restored clock is stopped")
	assert.Equal(t, want.Clock.Black, got.Clock.Black)
}

func TestFromRecordRejectsInconsistentHistory(t *testing.T) {
	s := newSession(t)
	playAll(t, s, "e2e4", "e7e5")
	rec := s.Record()

	bad := rec
	bad.MoveHistory = []string{"e4"}
	_, err := FromRecord(bad, fixedNow)
	assert.True(t, errors.Is(err, store.ErrMalformedRecord))

	bad = rec
	bad.PortableGameRecord = "1. e4 Ke3 *"
	_, err = FromRecord(bad, fixedNow)
	assert.ErrorIs(t, err, store.ErrMalformedRecord)

	bad = rec
	bad.TimeControl = clock.TimeControl{}
	_, err = FromRecord(bad, fixedNow)
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
}

func TestFromRecordKeepsTimeout(t *testing.T) {
	s := newSession(t, func(o *Options) { o.TimeControl = clock.TimeControl{White: 1, Black: 60} })
	s.ToggleClock()
	s.Tick()
	require.True(t, s.Over())

	restored, err := FromRecord(s.Record(), fixedNow)
	require.NoError(t, err)
	assert.True(t, restored.Over())
	assert.Equal(t, rules.ReasonTimeout, restored.Status().Reason)
}
