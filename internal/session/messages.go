package session

import (
	"go.uber.org/zap"

	"github.com/park285/cheese-web/internal/msgcat"
	"github.com/park285/cheese-web/internal/obslog"
)

// describe fills Event.Message from the catalog. Ticks carry no text.
func (c *Controller) describe(events []Event) {
	if c.msgs == nil {
		return
	}
	for i := range events {
		ev := events[i]
		if ev.Kind == EventTick {
			continue
		}
		text, err := c.msgs.EventText(string(ev.Kind), variantOf(ev), c.eventData(ev))
		if err != nil {
			obslog.L().Debug("message_render_error", zap.String("kind", string(ev.Kind)), zap.Error(err))
			continue
		}
		events[i].Message = text
	}
}

// variantOf picks the sub-key for kinds with more than one text.
func variantOf(ev Event) string {
	switch ev.Kind {
	case EventGameOver:
		return string(ev.Reason)
	case EventClock:
		if ev.Clock != nil && ev.Clock.Running {
			return "running"
		}
		return "paused"
	default:
		return ""
	}
}

func (c *Controller) eventData(ev Event) msgcat.EventData {
	d := msgcat.EventData{Side: c.msgs.SideName(string(ev.Side))}
	if ev.Move != nil {
		d.Notation = ev.Move.Notation
		if ev.Move.Captured != "" {
			d.Piece = c.msgs.PieceName(ev.Move.Captured.Kind())
		}
	}
	if ev.Winner != "" {
		d.Winner = c.msgs.SideName(string(ev.Winner))
		d.Loser = c.msgs.SideName(string(ev.Winner.Other()))
	}
	if ev.Kind == EventReset {
		d.Label = c.s.Label()
	}
	return d
}
