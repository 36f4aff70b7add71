package chessdto

import "time"

type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type ClockState struct {
	White     int  `json:"white"`
	Black     int  `json:"black"`
	Increment int  `json:"increment"`
	Running   bool `json:"running"`
}

type TimeControl struct {
	White     int `json:"white"`
	Black     int `json:"black"`
	Increment int `json:"increment"`
}

type SquarePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Selection struct {
	Selected     string   `json:"selected,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
}

type GameOver struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"`
}

// SessionState is the full board state returned by every intent.
type SessionState struct {
	GameID       string            `json:"gameId"`
	Label        string            `json:"label"`
	StartedAt    time.Time         `json:"startedAt"`
	FEN          string            `json:"fen"`
	Turn         string            `json:"turn"`
	Pieces       map[string]string `json:"pieces"`
	Moves        []MoveRecord      `json:"moves"`
	Captured     CapturedPieces    `json:"captured"`
	Clock        ClockState        `json:"clock"`
	TimeControl  TimeControl       `json:"timeControl"`
	Selection    Selection         `json:"selection"`
	LastMove     *SquarePair       `json:"lastMove,omitempty"`
	InCheck      bool              `json:"inCheck"`
	GameOver     *GameOver         `json:"gameOver,omitempty"`
	Flipped      bool              `json:"flipped"`
	SoundEnabled bool              `json:"soundEnabled"`
	BoardTheme   string            `json:"boardTheme"`
}
