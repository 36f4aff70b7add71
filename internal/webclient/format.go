package webclient

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/pkg/chessdto"
)

const recentMovesLimit = 6

var pieceGlyphs = map[string]string{
	"wk": "♔", "wq": "♕", "wr": "♖", "wb": "♗", "wn": "♘", "wp": "♙",
	"bk": "♚", "bq": "♛", "br": "♜", "bb": "♝", "bn": "♞", "bp": "♟",
}

// Formatter renders session DTOs for a terminal.
type Formatter struct {
	light, dark, lastMove, selected, check *color.Color
	heading, dim, alert                    *color.Color
}

func NewFormatter() *Formatter {
	return &Formatter{
		light:    color.New(color.BgHiWhite, color.FgBlack),
		dark:     color.New(color.BgGreen, color.FgBlack),
		lastMove: color.New(color.BgHiYellow, color.FgBlack),
		selected: color.New(color.BgHiCyan, color.FgBlack),
		check:    color.New(color.BgHiRed, color.FgBlack),
		heading:  color.New(color.Bold),
		dim:      color.New(color.Faint),
		alert:    color.New(color.FgRed, color.Bold),
	}
}

// Board draws the position from the side the session is oriented to.
func (f *Formatter) Board(st *chessdto.SessionState) string {
	if st == nil {
		return ""
	}
	files := []byte("abcdefgh")
	ranks := []byte("87654321")
	if st.Flipped {
		files = []byte("hgfedcba")
		ranks = []byte("12345678")
	}
	dests := make(map[string]bool, len(st.Selection.Destinations))
	for _, sq := range st.Selection.Destinations {
		dests[sq] = true
	}
	checked := ""
	if st.InCheck {
		checked = kingOf(st.Pieces, st.Turn)
	}

	var sb strings.Builder
	for _, r := range ranks {
		sb.WriteString(f.dim.Sprintf("%c ", r))
		for _, file := range files {
			sq := string([]byte{file, r})
			cell := " "
			if p, ok := st.Pieces[sq]; ok {
				cell = pieceGlyphs[p]
			} else if dests[sq] {
				cell = "·"
			}
			sb.WriteString(f.squareColor(st, sq, checked).Sprintf(" %s ", cell))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for _, file := range files {
		sb.WriteString(f.dim.Sprintf(" %c ", file))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *Formatter) squareColor(st *chessdto.SessionState, sq, checked string) *color.Color {
	switch {
	case sq == checked:
		return f.check
	case sq == st.Selection.Selected:
		return f.selected
	case st.LastMove != nil && (sq == st.LastMove.From || sq == st.LastMove.To):
		return f.lastMove
	case (int(sq[0]-'a')+int(sq[1]-'1'))%2 == 0:
		return f.dark
	default:
		return f.light
	}
}

// Status summarizes clocks, material and recent moves below the board.
func (f *Formatter) Status(st *chessdto.SessionState) string {
	if st == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(f.heading.Sprintf("%s", st.Label))
	sb.WriteString(f.dim.Sprintf("  %s\n", st.GameID))

	run := "paused"
	if st.Clock.Running {
		run = "running"
	}
	sb.WriteString(fmt.Sprintf("• White %s  Black %s  (%s, +%ds)\n",
		clock.FormatSeconds(st.Clock.White), clock.FormatSeconds(st.Clock.Black), run, st.Clock.Increment))

	if over := st.GameOver; over != nil {
		sb.WriteString(f.alert.Sprintf("• %s\n", FormatOutcome(over.Reason, over.Winner)))
	} else {
		turn := fmt.Sprintf("• %s to move", capitalize(st.Turn))
		if st.InCheck {
			turn += f.alert.Sprint(" (check)")
		}
		sb.WriteString(turn + "\n")
	}
	sb.WriteString(fmt.Sprintf("• Moves %s\n", FormatRecentMoves(st.Moves)))
	if captured := FormatCaptured(st.Captured); captured != "" {
		sb.WriteString("• Captured " + captured + "\n")
	}
	return sb.String()
}

// Event renders one stream event as a single line. Ticks render as an empty string.
func (f *Formatter) Event(ev chessdto.Event) string {
	if ev.Kind == "tick" {
		return ""
	}
	text := ev.Message
	if text == "" {
		text = ev.Kind
		if ev.Move != nil {
			text += " " + ev.Move.Notation
		}
		if ev.Reason != "" {
			text += " " + FormatOutcome(ev.Reason, ev.Winner)
		}
	}
	if ev.Kind == "game_over" || ev.Kind == "time_expired" {
		return f.alert.Sprint(text)
	}
	return text
}

func FormatOutcome(reason, winner string) string {
	label := strings.ReplaceAll(reason, "_", " ")
	if winner == "" {
		return fmt.Sprintf("Draw by %s", label)
	}
	return fmt.Sprintf("%s wins by %s", capitalize(winner), label)
}

// FormatRecentMoves numbers the last few plies, e.g. "… 3. Bc4 Nf6 4. Ng5".
func FormatRecentMoves(moves []chessdto.MoveRecord) string {
	if len(moves) == 0 {
		return "-"
	}
	start := 0
	if len(moves) > recentMovesLimit {
		start = len(moves) - recentMovesLimit
		if start%2 == 1 {
			start++
		}
	}
	parts := make([]string, 0, len(moves)-start+1)
	if start > 0 {
		parts = append(parts, "…")
	}
	for i := start; i < len(moves); i++ {
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d. %s", i/2+1, moves[i].Notation))
			continue
		}
		parts = append(parts, moves[i].Notation)
	}
	return strings.Join(parts, " ")
}

func FormatCaptured(captured chessdto.CapturedPieces) string {
	white := formatCapturedSequence(captured.White)
	black := formatCapturedSequence(captured.Black)
	if white == "" && black == "" {
		return ""
	}
	var parts []string
	if white != "" {
		parts = append(parts, "White "+white)
	}
	if black != "" {
		parts = append(parts, "Black "+black)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []string) string {
	tokens := make([]string, 0, len(order))
	for _, p := range order {
		if g, ok := pieceGlyphs[p]; ok {
			tokens = append(tokens, g)
		}
	}
	return strings.Join(tokens, "")
}

func kingOf(pieces map[string]string, side string) string {
	want := "wk"
	if side == "black" {
		want = "bk"
	}
	for sq, p := range pieces {
		if p == want {
			return sq
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
