package session

import (
	"fmt"
	"strings"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/store"
)

// State is a read-only copy of the session for presentation.
type State struct {
	GameID       string                         `json:"gameId"`
	Label        string                         `json:"label"`
	StartedAt    time.Time                      `json:"startedAt"`
	FEN          string                         `json:"fen"`
	Turn         rules.Side                     `json:"turn"`
	Pieces       map[rules.Square]rules.PieceID `json:"pieces"`
	Moves        []rules.MoveRecord             `json:"moves"`
	Captured     Captured                       `json:"captured"`
	Clock        clock.State                    `json:"clock"`
	TimeControl  clock.TimeControl              `json:"timeControl"`
	Selection    Selection                      `json:"selection"`
	LastMove     *Move                          `json:"lastMove,omitempty"`
	InCheck      bool                           `json:"inCheck"`
	GameOver     *GameOver                      `json:"gameOver,omitempty"`
	Flipped      bool                           `json:"flipped"`
	SoundEnabled bool                           `json:"soundEnabled"`
	BoardTheme   string                         `json:"boardTheme"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() State {
	st := State{
		GameID:       s.id,
		Label:        s.label,
		StartedAt:    s.startedAt,
		FEN:          s.game.FEN(),
		Turn:         s.game.Turn(),
		Pieces:       s.game.Pieces(),
		Moves:        append([]rules.MoveRecord{}, s.moves...),
		Captured:     s.captured.clone(),
		Clock:        s.clock.State(),
		TimeControl:  s.timeControl,
		Selection:    Selection{Selected: s.selection.Selected, Destinations: append([]rules.Square(nil), s.selection.Destinations...)},
		InCheck:      s.game.InCheck(),
		Flipped:      s.flipped,
		SoundEnabled: s.sound,
		BoardTheme:   s.theme,
	}
	if s.lastMove != nil {
		lm := *s.lastMove
		st.LastMove = &lm
	}
	if s.over != nil {
		over := *s.over
		st.GameOver = &over
	}
	return st
}

// Record converts the session into its persisted form. Selection is never persisted.
func (s *Session) Record() store.Record {
	history := make([]string, len(s.moves))
	for i, m := range s.moves {
		history[i] = m.Notation
	}
	captured := s.captured.clone()
	cs := s.clock.State()
	rec := store.Record{
		PortableGameRecord: s.pgn(s.startedAt),
		MoveHistory:        history,
		CapturedPieces:     store.CapturedPieces{White: captured.White, Black: captured.Black},
		OrientationFlipped: s.flipped,
		SoundEnabled:       s.sound,
		TimeControl:        s.timeControl,
		BoardTheme:         s.theme,
		GameID:             s.id,
		Label:              s.label,
		StartedAt:          s.startedAt,
		Clock:              &cs,
	}
	if s.lastMove != nil {
		rec.LastMove = &store.LastMove{From: s.lastMove.From, To: s.lastMove.To}
	}
	if s.over != nil {
		rec.GameOver = &store.GameOver{Reason: s.over.Reason, Winner: s.over.Winner}
	}
	return rec
}

// FromRecord rebuilds a session by replaying the stored game record. Captured pieces and the last
// move are derived from the replay. Any inconsistency is reported as store.ErrMalformedRecord.
func FromRecord(rec store.Record, now func() time.Time) (*Session, error) {
	if now == nil {
		now = time.Now
	}
	game := rules.NewGame()
	moves := []rules.MoveRecord{}
	if strings.TrimSpace(rec.PortableGameRecord) != "" {
		g, replayed, err := rules.Deserialize(rec.PortableGameRecord)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
		}
		game, moves = g, replayed
	}
	if len(moves) != len(rec.MoveHistory) {
		return nil, fmt.Errorf("%w: record has %d plies, history %d", store.ErrMalformedRecord, len(moves), len(rec.MoveHistory))
	}
	for i, m := range moves {
		if m.Notation != rec.MoveHistory[i] {
			return nil, fmt.Errorf("%w: ply %d is %s, history says %s", store.ErrMalformedRecord, i, m.Notation, rec.MoveHistory[i])
		}
	}
	tc := rec.TimeControl
	if err := tc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}

	s := &Session{
		id:          rec.GameID,
		label:       rec.Label,
		startedAt:   rec.StartedAt,
		game:        game,
		moves:       moves,
		captured:    deriveCaptured(moves),
		lastMove:    lastMoveOf(moves),
		flipped:     rec.OrientationFlipped,
		sound:       rec.SoundEnabled,
		theme:       normalizeTheme(rec.BoardTheme),
		timeControl: tc,
		now:         now,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.label == "" {
		s.label = petname.Generate(2, "-")
	}
	if s.startedAt.IsZero() {
		s.startedAt = now()
	}
	if rec.Clock != nil {
		s.clock = clock.Restore(*rec.Clock)
	} else {
		s.clock = clock.New(tc)
	}
	switch {
	case rec.GameOver != nil && rec.GameOver.Reason == rules.ReasonTimeout:
		s.over = &GameOver{Reason: rec.GameOver.Reason, Winner: rec.GameOver.Winner}
	case game.Status().Over:
		st := game.Status()
		s.over = &GameOver{Reason: st.Reason, Winner: st.Winner}
	}
	return s, nil
}
