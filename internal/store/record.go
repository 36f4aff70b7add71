package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
)

// DefaultKey is the key holding the single session record.
const DefaultKey = "cheese:session"

var (
	// ErrNoRecord means nothing was saved yet.
	ErrNoRecord = errors.New("no saved session")
	// ErrMalformedRecord means the saved record cannot be decoded or replayed.
	ErrMalformedRecord = errors.New("malformed saved session")
)

// CapturedPieces holds the pieces taken by each side.
type CapturedPieces struct {
	White []rules.PieceID `json:"white"`
	Black []rules.PieceID `json:"black"`
}

// LastMove is the from/to pair of the latest ply.
type LastMove struct {
	From rules.Square `json:"from"`
	To   rules.Square `json:"to"`
}

// GameOver is persisted so that a lost-on-time game stays finished after restart.
type GameOver struct {
	Reason rules.Reason `json:"reason"`
	Winner rules.Side   `json:"winner,omitempty"`
}

// Record is the persisted session.
type Record struct {
	PortableGameRecord string            `json:"portableGameRecord"`
	MoveHistory        []string          `json:"moveHistory"`
	CapturedPieces     CapturedPieces    `json:"capturedPieces"`
	LastMove           *LastMove         `json:"lastMove"`
	OrientationFlipped bool              `json:"orientationFlipped"`
	SoundEnabled       bool              `json:"soundEnabled"`
	TimeControl        clock.TimeControl `json:"timeControl"`
	BoardTheme         string            `json:"boardTheme"`

	GameID    string       `json:"gameId,omitempty"`
	Label     string       `json:"label,omitempty"`
	StartedAt time.Time    `json:"startedAt,omitempty"`
	Clock     *clock.State `json:"clock,omitempty"`
	GameOver  *GameOver    `json:"gameOver,omitempty"`
}

// Encode renders rec as JSON.
func Encode(rec Record) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(raw), nil
}

// Decode parses a stored record. Any parse failure is reported as ErrMalformedRecord.
func Decode(raw string) (Record, error) {
	var rec Record
	if strings.TrimSpace(raw) == "" {
		return rec, fmt.Errorf("%w: empty", ErrMalformedRecord)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return rec, nil
}

// Load reads and decodes the record under key.
func Load(ctx context.Context, kv KV, key string) (Record, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key, err)
	}
	return Decode(raw)
}
