package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-web/internal/obslog"
)

const defaultWriteTimeout = 3 * time.Second

// Writer saves records on a background goroutine. Only the newest pending record is written;
// Save never blocks on I/O and failures are logged, not returned.
type Writer struct {
	kv      KV
	key     string
	timeout time.Duration

	mu      sync.Mutex
	pending *string
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriter starts a writer for key.
func NewWriter(kv KV, key string) *Writer {
	if key == "" {
		key = DefaultKey
	}
	w := &Writer{
		kv:      kv,
		key:     key,
		timeout: defaultWriteTimeout,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Save queues rec, replacing any record not yet written.
func (w *Writer) Save(rec Record) {
	raw, err := Encode(rec)
	if err != nil {
		obslog.L().Error("persist_encode_error", zap.Error(err))
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &raw
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close writes the last pending record and stops the goroutine.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)
	<-w.done
}

func (w *Writer) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	raw := w.pending
	w.pending = nil
	w.mu.Unlock()
	if raw == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	start := time.Now()
	if err := w.kv.Set(ctx, w.key, *raw); err != nil {
		obslog.L().Warn("persist_error", zap.String("key", w.key), zap.Error(err))
		return
	}
	obslog.L().Debug("persist_ok", zap.String("key", w.key), zap.Int("bytes", len(*raw)), zap.Duration("took", time.Since(start)))
}
