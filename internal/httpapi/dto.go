package httpapi

import (
	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/session"
	"github.com/park285/cheese-web/pkg/chessdto"
)

func toStateDTO(st session.State) *chessdto.SessionState {
	out := &chessdto.SessionState{
		GameID:    st.GameID,
		Label:     st.Label,
		StartedAt: st.StartedAt,
		FEN:       st.FEN,
		Turn:      string(st.Turn),
		Pieces:    make(map[string]string, len(st.Pieces)),
		Moves:     make([]chessdto.MoveRecord, 0, len(st.Moves)),
		Captured: chessdto.CapturedPieces{
			White: pieceStrings(st.Captured.White),
			Black: pieceStrings(st.Captured.Black),
		},
		Clock: clockDTO(st.Clock),
		TimeControl: chessdto.TimeControl{
			White:     st.TimeControl.White,
			Black:     st.TimeControl.Black,
			Increment: st.TimeControl.Increment,
		},
		Selection: chessdto.Selection{
			Selected:     string(st.Selection.Selected),
			Destinations: squareStrings(st.Selection.Destinations),
		},
		InCheck:      st.InCheck,
		Flipped:      st.Flipped,
		SoundEnabled: st.SoundEnabled,
		BoardTheme:   st.BoardTheme,
	}
	for sq, p := range st.Pieces {
		out.Pieces[string(sq)] = string(p)
	}
	for _, m := range st.Moves {
		out.Moves = append(out.Moves, moveDTO(m))
	}
	if st.LastMove != nil {
		out.LastMove = &chessdto.SquarePair{From: string(st.LastMove.From), To: string(st.LastMove.To)}
	}
	if st.GameOver != nil {
		out.GameOver = &chessdto.GameOver{Reason: string(st.GameOver.Reason), Winner: string(st.GameOver.Winner)}
	}
	return out
}

func toEventDTO(ev session.Event) chessdto.Event {
	out := chessdto.Event{
		Kind:    string(ev.Kind),
		Side:    string(ev.Side),
		Reason:  string(ev.Reason),
		Winner:  string(ev.Winner),
		Sound:   ev.Sound,
		Message: ev.Message,
	}
	if ev.Move != nil {
		m := moveDTO(*ev.Move)
		out.Move = &m
	}
	if ev.Clock != nil {
		c := clockDTO(*ev.Clock)
		out.Clock = &c
	}
	return out
}

func toEventDTOs(events []session.Event) []chessdto.Event {
	out := make([]chessdto.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventDTO(ev))
	}
	return out
}

func moveDTO(m rules.MoveRecord) chessdto.MoveRecord {
	return chessdto.MoveRecord{
		Notation:  m.Notation,
		From:      string(m.From),
		To:        string(m.To),
		Captured:  string(m.Captured),
		Promotion: m.Promotion,
	}
}

func clockDTO(c clock.State) chessdto.ClockState {
	return chessdto.ClockState{White: c.White, Black: c.Black, Increment: c.Increment, Running: c.Running}
}

func pieceStrings(in []rules.PieceID) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = string(p)
	}
	return out
}

func squareStrings(in []rules.Square) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, sq := range in {
		out[i] = string(sq)
	}
	return out
}
