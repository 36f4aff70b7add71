package session

import (
	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/rules"
)

// EventKind names a session event.
type EventKind string

const (
	EventMoved       EventKind = "moved"
	EventCaptured    EventKind = "captured"
	EventCheck       EventKind = "check"
	EventGameOver    EventKind = "game_over"
	EventTimeExpired EventKind = "time_expired"
	EventReset       EventKind = "reset"
	EventUndo        EventKind = "undo"
	EventSettings    EventKind = "settings"
	EventClock       EventKind = "clock"
	EventTick        EventKind = "tick"
)

// Sound cues attached to events while sound is enabled.
const (
	SoundMove     = "move"
	SoundCapture  = "capture"
	SoundCheck    = "check"
	SoundGameOver = "game_over"
)

// Event is produced by a committed transition.
type Event struct {
	Kind    EventKind         `json:"kind"`
	Move    *rules.MoveRecord `json:"move,omitempty"`
	Side    rules.Side        `json:"side,omitempty"`
	Reason  rules.Reason      `json:"reason,omitempty"`
	Winner  rules.Side        `json:"winner,omitempty"`
	Clock   *clock.State      `json:"clock,omitempty"`
	Sound   string            `json:"sound,omitempty"`
	Message string            `json:"message,omitempty"`
}

func (s *Session) cue(ev Event, sound string) Event {
	if s.sound {
		ev.Sound = sound
	}
	return ev
}
