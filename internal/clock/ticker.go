package clock

import (
	"context"
	"sync"
	"time"
)

// Ticker schedules periodic callbacks. Every Start opens a new generation; Stop cancels the
// schedule and retires the generation so a callback already in flight can tell it is stale.
type Ticker struct {
	interval time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTicker returns a stopped ticker. Non-positive intervals default to one second.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{interval: interval}
}

// Start cancels any running schedule and begins a new one calling fn once per interval.
// It returns the generation passed to fn.
func (t *Ticker) Start(fn func(gen uint64)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	t.gen++
	gen := t.gen
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if ctx.Err() != nil {
					return
				}
				fn(gen)
			}
		}
	}()
	return gen
}

// Stop cancels the schedule without waiting for an in-flight callback; that callback observes a
// retired generation through Current.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Ticker) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
		t.gen++
	}
}

// Current returns the live generation. A callback whose generation differs must be discarded.
func (t *Ticker) Current() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Active reports whether a schedule is running.
func (t *Ticker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Close stops the schedule and waits for the worker to exit. Do not call it while holding a lock
// the callback needs.
func (t *Ticker) Close() {
	t.Stop()
	t.wg.Wait()
}
