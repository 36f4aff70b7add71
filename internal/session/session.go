// Package session holds the authoritative game session and the controller that serializes every
// transition on it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
)

// Themes are the selectable board themes; the first is the default.
var Themes = []string{"classic", "green", "blue", "gray"}

// DefaultTimeControl is ten minutes per side without increment.
var DefaultTimeControl = clock.TimeControl{White: 600, Black: 600}

var ErrUnknownTheme = errors.New("unknown board theme")

// Move is the from/to pair highlighted as the last move.
type Move struct {
	From rules.Square `json:"from"`
	To   rules.Square `json:"to"`
}

// Captured holds pieces taken BY each side: White lists black pieces White captured.
type Captured struct {
	White []rules.PieceID `json:"white"`
	Black []rules.PieceID `json:"black"`
}

func (c *Captured) add(by rules.Side, p rules.PieceID) {
	if by == rules.Black {
		c.Black = append(c.Black, p)
		return
	}
	c.White = append(c.White, p)
}

func (c Captured) clone() Captured {
	return Captured{
		White: append([]rules.PieceID{}, c.White...),
		Black: append([]rules.PieceID{}, c.Black...),
	}
}

// Selection is the transient square selection and its legal destinations.
type Selection struct {
	Selected     rules.Square   `json:"selected,omitempty"`
	Destinations []rules.Square `json:"destinations,omitempty"`
}

// GameOver records how a finished game ended.
type GameOver struct {
	Reason rules.Reason `json:"reason"`
	Winner rules.Side   `json:"winner,omitempty"`
}

// Options configure a fresh session.
type Options struct {
	TimeControl  clock.TimeControl
	BoardTheme   string
	Flipped      bool
	SoundEnabled bool
	Now          func() time.Time
}

// Session is one hot-seat game plus its presentation settings. It is not safe for concurrent use;
// Controller owns the lock.
type Session struct {
	id        string
	label     string
	startedAt time.Time

	game      *rules.Game
	moves     []rules.MoveRecord
	captured  Captured
	clock     *clock.Clock
	selection Selection
	lastMove  *Move
	over      *GameOver

	flipped     bool
	sound       bool
	theme       string
	timeControl clock.TimeControl

	now func() time.Time
}

// New returns a fresh session at the initial position with a stopped clock.
func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tc := opts.TimeControl
	if tc.Validate() != nil {
		tc = DefaultTimeControl
	}
	return &Session{
		id:          uuid.NewString(),
		label:       petname.Generate(2, "-"),
		startedAt:   now(),
		game:        rules.NewGame(),
		moves:       []rules.MoveRecord{},
		captured:    Captured{White: []rules.PieceID{}, Black: []rules.PieceID{}},
		clock:       clock.New(tc),
		flipped:     opts.Flipped,
		sound:       opts.SoundEnabled,
		theme:       normalizeTheme(opts.BoardTheme),
		timeControl: tc,
		now:         now,
	}
}

func (s *Session) GameID() string { return s.id }

func (s *Session) Label() string { return s.label }

// Over reports whether the game has ended.
func (s *Session) Over() bool { return s.over != nil }

// ClockRunning reports whether the clock is counting down.
func (s *Session) ClockRunning() bool { return s.clock.Running() }

// AttemptMove plays from→to for the side to move. Anything illegal leaves the session unchanged
// and yields no events.
func (s *Session) AttemptMove(from, to rules.Square) []Event {
	if s.over != nil {
		return nil
	}
	from, to = norm(from), norm(to)
	piece, ok := s.game.PieceAt(from)
	if !ok || piece.Side() != s.game.Turn() {
		return nil
	}
	if !containsSquare(s.game.LegalDestinations(from), to) {
		return nil
	}
	wasRunning := s.clock.Running()
	rec, err := s.game.Apply(from, to)
	if err != nil {
		return nil
	}

	mover := piece.Side()
	s.moves = append(s.moves, rec)
	var events []Event
	if rec.Captured != "" {
		s.captured.add(mover, rec.Captured)
		events = append(events, s.cue(Event{Kind: EventCaptured, Move: &rec, Side: mover}, SoundCapture))
	} else {
		events = append(events, s.cue(Event{Kind: EventMoved, Move: &rec, Side: mover}, SoundMove))
	}
	if wasRunning {
		s.clock.CreditIncrement(mover)
	}
	if s.game.InCheck() {
		events = append(events, s.cue(Event{Kind: EventCheck, Side: mover.Other()}, SoundCheck))
	}
	if st := s.game.Status(); st.Over {
		events = append(events, s.finish(st.Reason, st.Winner))
	}
	s.selection = Selection{}
	s.lastMove = &Move{From: rec.From, To: rec.To}
	return events
}

// Undo takes back the last ply by replaying the remaining history from the initial position.
// Time already spent is not refunded.
func (s *Session) Undo() []Event {
	n := len(s.moves)
	if n == 0 {
		return nil
	}
	undone := s.moves[n-1]
	remaining := append([]rules.MoveRecord{}, s.moves[:n-1]...)
	game, err := rules.Replay(remaining)
	if err != nil {
		return nil
	}
	s.game = game
	s.moves = remaining
	s.captured = deriveCaptured(remaining)
	s.lastMove = lastMoveOf(remaining)
	s.selection = Selection{}
	// A fallen flag is not a property of the position, so undo does not revive it.
	if s.over != nil && s.over.Reason != rules.ReasonTimeout {
		s.over = nil
	}
	if st := game.Status(); st.Over && s.over == nil {
		s.over = &GameOver{Reason: st.Reason, Winner: st.Winner}
	}
	return []Event{{Kind: EventUndo, Move: &undone, Side: plySide(n - 1)}}
}

// Reset replaces the session with a fresh game keeping orientation, sound and theme.
func (s *Session) Reset() []Event {
	fresh := New(Options{
		TimeControl:  s.timeControl,
		BoardTheme:   s.theme,
		Flipped:      s.flipped,
		SoundEnabled: s.sound,
		Now:          s.now,
	})
	*s = *fresh
	st := s.clock.State()
	return []Event{{Kind: EventReset, Clock: &st}}
}

// SelectSquare toggles the selection. Choosing a legal destination of the current selection plays
// the move instead.
func (s *Session) SelectSquare(sq rules.Square) []Event {
	if s.over != nil {
		return nil
	}
	sq = norm(sq)
	if s.selection.Selected != "" {
		if sq == s.selection.Selected {
			s.selection = Selection{}
			return nil
		}
		if containsSquare(s.selection.Destinations, sq) {
			return s.AttemptMove(s.selection.Selected, sq)
		}
	}
	piece, ok := s.game.PieceAt(sq)
	if !ok || piece.Side() != s.game.Turn() {
		return nil
	}
	s.selection = Selection{Selected: sq, Destinations: s.game.LegalDestinations(sq)}
	return nil
}

// DragDrop is a move made by dragging a piece. A rejected drop keeps the current selection.
func (s *Session) DragDrop(from, to rules.Square) []Event {
	return s.AttemptMove(from, to)
}

func (s *Session) FlipOrientation() []Event {
	s.flipped = !s.flipped
	return []Event{{Kind: EventSettings}}
}

func (s *Session) ToggleSound() []Event {
	s.sound = !s.sound
	return []Event{{Kind: EventSettings}}
}

// SetBoardTheme selects one of Themes.
func (s *Session) SetBoardTheme(name string) ([]Event, error) {
	theme := strings.ToLower(strings.TrimSpace(name))
	if !validTheme(theme) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	s.theme = theme
	return []Event{{Kind: EventSettings}}, nil
}

// SetTimeControl stores tc for the next game. Before the first move with the clock stopped it
// also reloads the current clock.
func (s *Session) SetTimeControl(tc clock.TimeControl) ([]Event, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	s.timeControl = tc
	ev := Event{Kind: EventSettings}
	if len(s.moves) == 0 && s.over == nil && !s.clock.Running() {
		s.clock.Reset(tc)
		st := s.clock.State()
		ev.Clock = &st
	}
	return []Event{ev}, nil
}

// ToggleClock starts or pauses the clock. No-op once the game is over.
func (s *Session) ToggleClock() []Event {
	if s.over != nil {
		return nil
	}
	if !s.clock.Pause() && !s.clock.Start(false) {
		return nil
	}
	st := s.clock.State()
	return []Event{{Kind: EventClock, Clock: &st}}
}

// Tick takes one second from the side to move.
func (s *Session) Tick() []Event {
	if s.over != nil || !s.clock.Running() {
		return nil
	}
	side := s.game.Turn()
	expired := s.clock.Tick(side)
	st := s.clock.State()
	if !expired {
		return []Event{{Kind: EventTick, Side: side, Clock: &st}}
	}
	return []Event{
		s.cue(Event{Kind: EventTimeExpired, Side: side, Clock: &st}, SoundGameOver),
		s.finish(rules.ReasonTimeout, side.Other()),
	}
}

// finish ends the game and forces the clock to stop.
func (s *Session) finish(reason rules.Reason, winner rules.Side) Event {
	s.over = &GameOver{Reason: reason, Winner: winner}
	s.clock.Pause()
	return s.cue(Event{Kind: EventGameOver, Reason: reason, Winner: winner}, SoundGameOver)
}

// Status is the engine status, overridden by a loss on time.
func (s *Session) Status() rules.Status {
	if s.over != nil {
		return rules.Status{Over: true, Reason: s.over.Reason, Winner: s.over.Winner}
	}
	return s.game.Status()
}

// Export renders the game as PGN with a date-stamped file name.
func (s *Session) Export(now time.Time) (filename, pgn string) {
	filename = fmt.Sprintf("chess-game-%s.pgn", now.Format("2006-01-02"))
	return filename, s.pgn(now)
}

func (s *Session) pgn(date time.Time) string {
	st := s.Status()
	h := rules.Headers{
		Event:       "Casual game " + s.label,
		Site:        "cheese-web",
		Date:        date,
		TimeControl: s.timeControl.String(),
	}
	if st.Over {
		h.Termination = string(st.Reason)
	}
	return rules.Serialize(h, s.moves, st)
}

func deriveCaptured(moves []rules.MoveRecord) Captured {
	out := Captured{White: []rules.PieceID{}, Black: []rules.PieceID{}}
	for i, m := range moves {
		if m.Captured != "" {
			out.add(plySide(i), m.Captured)
		}
	}
	return out
}

func lastMoveOf(moves []rules.MoveRecord) *Move {
	if len(moves) == 0 {
		return nil
	}
	m := moves[len(moves)-1]
	return &Move{From: m.From, To: m.To}
}

func plySide(ply int) rules.Side {
	if ply%2 == 0 {
		return rules.White
	}
	return rules.Black
}

func containsSquare(list []rules.Square, sq rules.Square) bool {
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}

func norm(sq rules.Square) rules.Square {
	return rules.Square(strings.ToLower(strings.TrimSpace(string(sq))))
}

func validTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

func normalizeTheme(name string) string {
	theme := strings.ToLower(strings.TrimSpace(name))
	if validTheme(theme) {
		return theme
	}
	return Themes[0]
}
