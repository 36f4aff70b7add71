package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-web/internal/archive"
	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/msgcat"
	"github.com/park285/cheese-web/internal/obslog"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/store"
)

// Persister saves a record without blocking.
type Persister interface {
	Save(rec store.Record)
}

// Archiver stores finished games.
type Archiver interface {
	SaveResult(ctx context.Context, res archive.Result) error
}

// Publisher fans events out to watchers. Publish must not block.
type Publisher interface {
	Publish(ev Event)
}

// Messages renders event texts. *msgcat.Catalog implements it.
type Messages interface {
	EventText(kind, variant string, d msgcat.EventData) (string, error)
	SideName(side string) string
	PieceName(kind string) string
}

type Option func(*Controller)

func WithPersister(p Persister) Option { return func(c *Controller) { c.persist = p } }

func WithArchiver(a Archiver) Option { return func(c *Controller) { c.archiver = a } }

func WithPublisher(p Publisher) Option { return func(c *Controller) { c.pub = p } }

func WithMessages(m Messages) Option { return func(c *Controller) { c.msgs = m } }

// WithTicker replaces the default one-second ticker.
func WithTicker(t *clock.Ticker) Option { return func(c *Controller) { c.ticker = t } }

// WithClock overrides the wall clock used for export dates and archive timestamps.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// Controller serializes intents and clock ticks on one Session.
type Controller struct {
	mu sync.Mutex
	s  *Session

	ticker *clock.Ticker

	persist  Persister
	archiver Archiver
	pub      Publisher
	msgs     Messages
	now      func() time.Time

	archiveWG sync.WaitGroup
}

func NewController(s *Session, opts ...Option) *Controller {
	c := &Controller{s: s, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.ticker == nil {
		c.ticker = clock.NewTicker(time.Second)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Snapshot()
}

// Select handles a square click. Selection changes are not persisted.
func (c *Controller) Select(sq rules.Square) (State, []Event) {
	return c.apply("select", func(s *Session) ([]Event, bool) {
		events := s.SelectSquare(sq)
		return events, len(events) > 0
	})
}

func (c *Controller) Move(from, to rules.Square) (State, []Event) {
	return c.apply("move", func(s *Session) ([]Event, bool) {
		events := s.DragDrop(from, to)
		return events, len(events) > 0
	})
}

func (c *Controller) Undo() (State, []Event) {
	return c.apply("undo", func(s *Session) ([]Event, bool) {
		events := s.Undo()
		return events, len(events) > 0
	})
}

func (c *Controller) Reset() (State, []Event) {
	return c.apply("reset", func(s *Session) ([]Event, bool) {
		return s.Reset(), true
	})
}

func (c *Controller) Flip() (State, []Event) {
	return c.apply("flip", func(s *Session) ([]Event, bool) {
		return s.FlipOrientation(), true
	})
}

func (c *Controller) ToggleSound() (State, []Event) {
	return c.apply("sound", func(s *Session) ([]Event, bool) {
		return s.ToggleSound(), true
	})
}

func (c *Controller) ToggleClock() (State, []Event) {
	return c.apply("clock", func(s *Session) ([]Event, bool) {
		events := s.ToggleClock()
		return events, len(events) > 0
	})
}

func (c *Controller) SetTimeControl(tc clock.TimeControl) (State, []Event, error) {
	var opErr error
	st, events := c.apply("time_control", func(s *Session) ([]Event, bool) {
		events, err := s.SetTimeControl(tc)
		opErr = err
		return events, err == nil
	})
	return st, events, opErr
}

func (c *Controller) SetBoardTheme(name string) (State, []Event, error) {
	var opErr error
	st, events := c.apply("theme", func(s *Session) ([]Event, bool) {
		events, err := s.SetBoardTheme(name)
		opErr = err
		return events, err == nil
	})
	return st, events, opErr
}

// Export returns the PGN file name and body.
func (c *Controller) Export() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Export(c.now())
}

// Close stops ticking, waits for archive writes and returns the final record.
func (c *Controller) Close() store.Record {
	c.mu.Lock()
	c.ticker.Stop()
	rec := c.s.Record()
	c.mu.Unlock()
	c.ticker.Close()
	c.archiveWG.Wait()
	return rec
}

// apply runs op under the lock. op reports whether the session changed in a way worth persisting.
func (c *Controller) apply(intent string, op func(*Session) ([]Event, bool)) (State, []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOver := c.s.Over()
	events, changed := op(c.s)
	c.afterTransition(intent, events, changed, wasOver)
	return c.s.Snapshot(), events
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a tick that raced a stop or restart belongs to a retired generation
	if gen != c.ticker.Current() {
		return
	}
	wasOver := c.s.Over()
	events := c.s.Tick()
	c.afterTransition("tick", events, len(events) > 0, wasOver)
}

// Resume starts the tick scheduler if a restored session's clock is running.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncTicker()
}

func (c *Controller) afterTransition(intent string, events []Event, changed, wasOver bool) {
	c.syncTicker()
	if len(events) > 0 {
		c.describe(events)
	}
	if changed {
		obslog.L().Debug("session_transition",
			zap.String("intent", intent),
			zap.String("game_id", c.s.GameID()),
			zap.Int("events", len(events)),
		)
		if c.persist != nil {
			c.persist.Save(c.s.Record())
		}
	}
	if !wasOver && c.s.Over() {
		st := c.s.Status()
		obslog.L().Info("session_game_over",
			zap.String("game_id", c.s.GameID()),
			zap.String("reason", string(st.Reason)),
			zap.String("winner", string(st.Winner)),
			zap.Int("plies", len(c.s.moves)),
		)
		c.archive()
	}
	if c.pub != nil {
		for _, ev := range events {
			c.pub.Publish(ev)
		}
	}
}

// syncTicker keeps the scheduler running exactly while the clock runs.
func (c *Controller) syncTicker() {
	running := c.s.ClockRunning() && !c.s.Over()
	switch {
	case running && !c.ticker.Active():
		c.ticker.Start(c.onTick)
	case !running && c.ticker.Active():
		c.ticker.Stop()
	}
}

func (c *Controller) archive() {
	if c.archiver == nil {
		return
	}
	s := c.s
	res := archive.Result{
		GameID:      s.id,
		Label:       s.label,
		Status:      s.Status(),
		MovesSAN:    make([]string, len(s.moves)),
		MovesUCI:    make([]string, len(s.moves)),
		PGN:         s.pgn(c.now()),
		TimeControl: s.timeControl.String(),
		StartedAt:   s.startedAt,
		EndedAt:     c.now(),
	}
	for i, m := range s.moves {
		res.MovesSAN[i] = m.Notation
		res.MovesUCI[i] = m.UCI()
	}
	c.archiveWG.Add(1)
	go func() {
		defer c.archiveWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.archiver.SaveResult(ctx, res); err != nil {
			obslog.L().Warn("archive_error", zap.String("game_id", res.GameID), zap.Error(err))
		}
	}()
}
