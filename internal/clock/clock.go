// Package clock implements the per-side chess clock and its tick scheduler.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/cheese-web/internal/rules"
)

// ErrInvalidTimeControl is returned for negative or empty time controls.
var ErrInvalidTimeControl = errors.New("invalid time control")

// TimeControl is the configured starting time per side and the Fischer increment, in seconds.
type TimeControl struct {
	White     int `json:"white"`
	Black     int `json:"black"`
	Increment int `json:"increment"`
}

// Validate checks that both sides start with time and the increment is not negative.
func (tc TimeControl) Validate() error {
	if tc.White <= 0 || tc.Black <= 0 || tc.Increment < 0 {
		return fmt.Errorf("%w: white=%d black=%d increment=%d", ErrInvalidTimeControl, tc.White, tc.Black, tc.Increment)
	}
	return nil
}

// String renders the PGN TimeControl tag value.
func (tc TimeControl) String() string {
	if tc.White == tc.Black {
		return fmt.Sprintf("%d+%d", tc.White, tc.Increment)
	}
	return fmt.Sprintf("%d/%d+%d", tc.White, tc.Black, tc.Increment)
}

// ParseTimeControl accepts "minutes+increment" such as "10+5" or "3+2".
func ParseTimeControl(s string) (TimeControl, error) {
	raw := strings.TrimSpace(s)
	minutesPart, incPart, _ := strings.Cut(raw, "+")
	minutes, err := strconv.Atoi(strings.TrimSpace(minutesPart))
	if err != nil {
		return TimeControl{}, fmt.Errorf("%w: %q", ErrInvalidTimeControl, s)
	}
	inc := 0
	if strings.TrimSpace(incPart) != "" {
		if inc, err = strconv.Atoi(strings.TrimSpace(incPart)); err != nil {
			return TimeControl{}, fmt.Errorf("%w: %q", ErrInvalidTimeControl, s)
		}
	}
	tc := TimeControl{White: minutes * 60, Black: minutes * 60, Increment: inc}
	return tc, tc.Validate()
}

// State is the serializable clock state.
type State struct {
	White     int  `json:"white"`
	Black     int  `json:"black"`
	Increment int  `json:"increment"`
	Running   bool `json:"running"`
}

// Clock is a two-state (RUNNING/STOPPED) countdown. It is not safe for concurrent use; the owning
// session serializes access.
type Clock struct {
	state   State
	expired bool
}

// New returns a stopped clock loaded with tc.
func New(tc TimeControl) *Clock {
	c := &Clock{}
	c.Reset(tc)
	return c
}

// Restore rebuilds a clock from persisted state. A restored clock is always stopped.
func Restore(s State) *Clock {
	s.Running = false
	if s.White < 0 {
		s.White = 0
	}
	if s.Black < 0 {
		s.Black = 0
	}
	return &Clock{state: s, expired: s.White == 0 || s.Black == 0}
}

// Reset reloads tc and stops the clock.
func (c *Clock) Reset(tc TimeControl) {
	c.state = State{White: tc.White, Black: tc.Black, Increment: tc.Increment}
	c.expired = false
}

// State returns a copy of the current state.
func (c *Clock) State() State { return c.state }

// Running reports whether the clock is counting down.
func (c *Clock) Running() bool { return c.state.Running }

// Remaining returns the seconds left for side.
func (c *Clock) Remaining(side rules.Side) int {
	if side == rules.Black {
		return c.state.Black
	}
	return c.state.White
}

// Start moves to RUNNING. No-op if already running, if the game is over, or if a flag has fallen.
func (c *Clock) Start(gameOver bool) bool {
	if c.state.Running || gameOver || c.expired {
		return false
	}
	c.state.Running = true
	return true
}

// Pause moves to STOPPED. No-op if already stopped.
func (c *Clock) Pause() bool {
	if !c.state.Running {
		return false
	}
	c.state.Running = false
	return true
}

// Tick takes one second from side. It reports true exactly once, when side reaches zero; the clock
// is then stopped.
func (c *Clock) Tick(side rules.Side) bool {
	if !c.state.Running {
		return false
	}
	rem := c.remainingPtr(side)
	if *rem > 0 {
		*rem--
	}
	if *rem > 0 {
		return false
	}
	c.state.Running = false
	if c.expired {
		return false
	}
	c.expired = true
	return true
}

// CreditIncrement adds the increment to side. Only applies while running.
func (c *Clock) CreditIncrement(side rules.Side) bool {
	if !c.state.Running || c.state.Increment <= 0 {
		return false
	}
	*c.remainingPtr(side) += c.state.Increment
	return true
}

func (c *Clock) remainingPtr(side rules.Side) *int {
	if side == rules.Black {
		return &c.state.Black
	}
	return &c.state.White
}

// FormatSeconds renders m:ss.
func FormatSeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
