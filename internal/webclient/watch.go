package webclient

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-web/pkg/chessdto"
)

type WatchState string

const (
	WatchDisconnected WatchState = "disconnected"
	WatchConnecting   WatchState = "connecting"
	WatchConnected    WatchState = "connected"
	WatchReconnecting WatchState = "reconnecting"
	WatchFailed       WatchState = "failed"
)

type EventCallback func(ev chessdto.Event)

type StateCallback func(state WatchState)

// Watcher follows /api/events and reconnects with backoff when the stream drops.
type Watcher struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  WatchState
	stateM sync.RWMutex

	eventCbs []EventCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewWatcher returns a watcher for wsURL. maxReconnectAttempts <= 0 disables reconnects.
func NewWatcher(wsURL string, maxReconnectAttempts int) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		wsURL:                wsURL,
		state:                WatchDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (w *Watcher) OnEvent(cb EventCallback) {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.eventCbs = append(w.eventCbs, cb)
}

func (w *Watcher) OnStateChange(cb StateCallback) {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.stateCbs = append(w.stateCbs, cb)
}

func (w *Watcher) State() WatchState {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *Watcher) Connect(ctx context.Context) error {
	if s := w.State(); s == WatchConnected || s == WatchConnecting {
		return nil
	}
	w.setState(WatchConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := w.dial(dialCtx)
	if err != nil {
		w.setState(WatchFailed)
		return err
	}
	w.attach(conn)
	return nil
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (w *Watcher) attach(conn *websocket.Conn) {
	w.connM.Lock()
	w.conn = conn
	w.connM.Unlock()
	w.setState(WatchConnected)

	w.wg.Add(2)
	go w.listen(conn)
	go w.pingLoop(conn)
}

func (w *Watcher) listen(conn *websocket.Conn) {
	defer w.wg.Done()
	for {
		var ev chessdto.Event
		if err := wsjson.Read(w.rootCtx, conn, &ev); err != nil {
			if w.isStopping() {
				return
			}
			w.setState(WatchDisconnected)
			_ = conn.Close(websocket.StatusGoingAway, "reconnect")
			w.scheduleReconnect()
			return
		}

		w.cbM.RLock()
		callbacks := append([]EventCallback(nil), w.eventCbs...)
		w.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(ev)
		}
	}
}

func (w *Watcher) pingLoop(conn *websocket.Conn) {
	defer w.wg.Done()
	t := time.NewTicker(w.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-w.stopCh:
			return
		case <-t.C:
			w.connM.Lock()
			current := w.conn == conn
			w.connM.Unlock()
			if !current {
				return
			}
			ctx, cancel := context.WithTimeout(w.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// listen notices the close and reconnects
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (w *Watcher) scheduleReconnect() {
	if w.maxReconnectAttempts <= 0 {
		w.setState(WatchFailed)
		return
	}
	w.setState(WatchReconnecting)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for attempt := 1; attempt <= w.maxReconnectAttempts; attempt++ {
			select {
			case <-w.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(w.rootCtx, 10*time.Second)
			conn, err := w.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if w.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			w.attach(conn)
			return
		}
		w.setState(WatchFailed)
	}()
}

func (w *Watcher) setState(state WatchState) {
	w.stateM.Lock()
	w.state = state
	w.stateM.Unlock()

	w.cbM.RLock()
	callbacks := append([]StateCallback(nil), w.stateCbs...)
	w.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

// Close stops reconnecting, closes the stream and waits for the reader, bounded by ctx.
func (w *Watcher) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.connM.Lock()
	if w.conn != nil {
		_ = w.conn.Close(websocket.StatusNormalClosure, "close")
		w.conn = nil
	}
	w.connM.Unlock()
	w.rootCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		w.setState(WatchDisconnected)
		return nil
	}
}

func (w *Watcher) isStopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}
