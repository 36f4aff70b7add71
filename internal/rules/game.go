package rules

import (
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Game wraps a rules-engine game. Callers serialize access.
type Game struct {
	g *nchess.Game
}

// NewGame returns a game at the standard initial position.
func NewGame() *Game {
	return &Game{g: nchess.NewGame()}
}

// Replay rebuilds a game from the initial position by applying every record in order.
func Replay(records []MoveRecord) (*Game, error) {
	game := NewGame()
	for i, rec := range records {
		uci := strings.ToLower(strings.TrimSpace(rec.UCI()))
		if err := game.g.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay ply %d (%s): %w", i, uci, err)
		}
		game.claimDraws()
	}
	return game, nil
}

// Turn returns the side to move.
func (g *Game) Turn() Side {
	return sideFrom(g.g.Position().Turn())
}

// FEN returns the current position in FEN.
func (g *Game) FEN() string {
	return g.g.FEN()
}

// PieceAt returns the piece standing on sq.
func (g *Game) PieceAt(sq Square) (PieceID, bool) {
	s, err := parseSquare(sq)
	if err != nil {
		return "", false
	}
	piece := g.g.Position().Board().Piece(s)
	if piece == nchess.NoPiece {
		return "", false
	}
	return pieceID(piece), true
}

// Pieces returns every occupied square.
func (g *Game) Pieces() map[Square]PieceID {
	out := make(map[Square]PieceID, 32)
	board := g.g.Position().Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			out[squareName(sq)] = pieceID(piece)
		}
	}
	return out
}

// LegalDestinations lists the squares the piece on from may move to. Empty when the game is over.
func (g *Game) LegalDestinations(from Square) []Square {
	if g.Status().Over {
		return nil
	}
	s1, err := parseSquare(from)
	if err != nil {
		return nil
	}
	seen := make(map[Square]struct{})
	for _, mv := range g.g.Position().ValidMoves() {
		if mv.S1() != s1 {
			continue
		}
		seen[squareName(mv.S2())] = struct{}{}
	}
	out := make([]Square, 0, len(seen))
	for sq := range seen {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Apply plays from→to for the side to move. Pawns reaching the last rank always become queens.
// On ErrIllegalMove the game is left untouched.
func (g *Game) Apply(from, to Square) (MoveRecord, error) {
	if g.Status().Over {
		return MoveRecord{}, ErrIllegalMove
	}
	s1, err := parseSquare(from)
	if err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	s2, err := parseSquare(to)
	if err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	pos := g.g.Position()
	mover := pos.Board().Piece(s1)
	if mover == nchess.NoPiece || mover.Color() != pos.Turn() {
		return MoveRecord{}, ErrIllegalMove
	}

	found, promotes := false, false
	for _, mv := range pos.ValidMoves() {
		if mv.S1() == s1 && mv.S2() == s2 {
			found = true
			if mv.Promo() != nchess.NoPieceType {
				promotes = true
			}
		}
	}
	if !found {
		return MoveRecord{}, ErrIllegalMove
	}

	uci := string(from) + string(to)
	promotion := ""
	if promotes {
		promotion = "q"
		uci += promotion
	}
	captured := capturedBy(pos, s1, s2)

	move, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, move)
	if err := g.g.Move(move, nil); err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	g.claimDraws()

	return MoveRecord{
		Notation:  san,
		From:      squareName(s1),
		To:        squareName(s2),
		Captured:  captured,
		Promotion: promotion,
	}, nil
}

// applySAN plays a move given in standard algebraic notation. Used when importing PGN, so
// underpromotions recorded elsewhere are accepted.
func (g *Game) applySAN(san string) (MoveRecord, error) {
	if g.Status().Over {
		return MoveRecord{}, ErrIllegalMove
	}
	pos := g.g.Position()
	move, err := nchess.AlgebraicNotation{}.Decode(pos, san)
	if err != nil {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, san)
	}
	notation := nchess.AlgebraicNotation{}.Encode(pos, move)
	captured := capturedBy(pos, move.S1(), move.S2())
	if err := g.g.Move(move, nil); err != nil {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, san)
	}
	g.claimDraws()
	rec := MoveRecord{
		Notation: notation,
		From:     squareName(move.S1()),
		To:       squareName(move.S2()),
		Captured: captured,
	}
	if promo := move.Promo(); promo != nchess.NoPieceType {
		rec.Promotion = typeLetter(promo)
	}
	return rec, nil
}

// InCheck reports whether the side to move is in check.
func (g *Game) InCheck() bool {
	if g.g.Method() == nchess.Checkmate {
		return true
	}
	moves := g.g.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// Status reports whether the position is terminal and why.
func (g *Game) Status() Status {
	outcome := g.g.Outcome()
	if outcome == nchess.NoOutcome {
		return Status{}
	}
	st := Status{Over: true, Reason: reasonFrom(g.g.Method())}
	switch outcome {
	case nchess.WhiteWon:
		st.Winner = White
	case nchess.BlackWon:
		st.Winner = Black
	}
	return st
}

// claimDraws ends the game on threefold repetition or the fifty-move rule. The engine only
// offers these as claimable draws.
func (g *Game) claimDraws() {
	if g.g.Outcome() != nchess.NoOutcome {
		return
	}
	eligible := g.g.EligibleDraws()
	for _, want := range []nchess.Method{nchess.ThreefoldRepetition, nchess.FiftyMoveRule} {
		for _, m := range eligible {
			if m == want {
				_ = g.g.Draw(m)
				return
			}
		}
	}
}

// capturedBy returns the piece removed by s1→s2, including en passant victims.
func capturedBy(pos *nchess.Position, s1, s2 nchess.Square) PieceID {
	board := pos.Board()
	if victim := board.Piece(s2); victim != nchess.NoPiece {
		return pieceID(victim)
	}
	mover := board.Piece(s1)
	if mover.Type() == nchess.Pawn && s1.File() != s2.File() {
		if victim := board.Piece(nchess.NewSquare(s2.File(), s1.Rank())); victim != nchess.NoPiece {
			return pieceID(victim)
		}
	}
	return ""
}

func reasonFrom(m nchess.Method) Reason {
	switch m {
	case nchess.Checkmate:
		return ReasonCheckmate
	case nchess.Stalemate:
		return ReasonStalemate
	case nchess.ThreefoldRepetition:
		return ReasonThreefoldRepetition
	case nchess.FivefoldRepetition:
		return ReasonFivefoldRepetition
	case nchess.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case nchess.FiftyMoveRule:
		return ReasonFiftyMoveRule
	case nchess.SeventyFiveMoveRule:
		return ReasonSeventyFiveMoveRule
	default:
		return ReasonNone
	}
}

func sideFrom(c nchess.Color) Side {
	if c == nchess.Black {
		return Black
	}
	return White
}

func pieceID(p nchess.Piece) PieceID {
	prefix := "w"
	if p.Color() == nchess.Black {
		prefix = "b"
	}
	return PieceID(prefix + typeLetter(p.Type()))
}

func typeLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.King:
		return "k"
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	case nchess.Pawn:
		return "p"
	default:
		return ""
	}
}

// ValidSquare reports whether s names a board square.
func ValidSquare(s Square) bool {
	_, err := parseSquare(s)
	return err == nil
}

func parseSquare(s Square) (nchess.Square, error) {
	name := strings.ToLower(strings.TrimSpace(string(s)))
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, string(s))
	}
	return nchess.NewSquare(nchess.File(name[0]-'a'), nchess.Rank(name[1]-'1')), nil
}

func squareName(sq nchess.Square) Square {
	return Square([]byte{'a' + byte(sq.File()), '1' + byte(sq.Rank())})
}
