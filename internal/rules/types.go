package rules

import (
	"errors"
	"strings"
)

// Side identifies a chess side.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

// ParseSide accepts white/black and their one-letter forms.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Square is an algebraic square name such as "e4".
type Square string

// PieceID names a piece by side and type, e.g. "wq" or "bp".
type PieceID string

// Side returns the owner of the piece.
func (p PieceID) Side() Side {
	if strings.HasPrefix(string(p), "b") {
		return Black
	}
	return White
}

// Kind returns the lower-case type letter (p, n, b, r, q, k).
func (p PieceID) Kind() string {
	if len(p) < 2 {
		return ""
	}
	return string(p[1:2])
}

// MoveRecord is one committed ply.
type MoveRecord struct {
	Notation  string  `json:"notation"`
	From      Square  `json:"from"`
	To        Square  `json:"to"`
	Captured  PieceID `json:"captured,omitempty"`
	Promotion string  `json:"promotion,omitempty"`
}

// UCI returns the long-algebraic form used to replay the move.
func (m MoveRecord) UCI() string {
	return string(m.From) + string(m.To) + m.Promotion
}

// Reason explains why a game ended.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonThreefoldRepetition  Reason = "threefold_repetition"
	ReasonFivefoldRepetition   Reason = "fivefold_repetition"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonFiftyMoveRule        Reason = "fifty_move_rule"
	ReasonSeventyFiveMoveRule  Reason = "seventy_five_move_rule"
	ReasonTimeout              Reason = "timeout"
)

// IsDraw reports whether the reason ends the game without a winner.
func (r Reason) IsDraw() bool {
	switch r {
	case ReasonStalemate, ReasonThreefoldRepetition, ReasonFivefoldRepetition,
		ReasonInsufficientMaterial, ReasonFiftyMoveRule, ReasonSeventyFiveMoveRule:
		return true
	default:
		return false
	}
}

// Status is the termination state of a position.
type Status struct {
	Over   bool   `json:"over"`
	Reason Reason `json:"reason,omitempty"`
	Winner Side   `json:"winner,omitempty"`
}

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrInvalidSquare = errors.New("invalid square")
	ErrEmptyRecord   = errors.New("empty game record")
)
