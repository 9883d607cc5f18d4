package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/oraclekit/logging"
)

// EventWatcher subscribes to the node's websocket event stream and wakes the
// poll loop when a task event lands, instead of waiting out the interval.
// It is an optimization only: the poll loop is correct without it, and the
// watcher drops wakes rather than block.
type EventWatcher struct {
	url       string
	packageID string
	log       *logging.Logger

	wake    chan struct{}
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// EventWatcherConfig configures an EventWatcher.
type EventWatcherConfig struct {
	// URL is the node's websocket endpoint, e.g. "wss://host/subscribe".
	URL string

	// PackageID scopes which events count as task events.
	PackageID string

	// Logger for connection diagnostics.
	Logger *logging.Logger
}

// NewEventWatcher creates a watcher; Start must be called to connect.
func NewEventWatcher(cfg EventWatcherConfig) *EventWatcher {
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	return &EventWatcher{
		url:       cfg.URL,
		packageID: cfg.PackageID,
		log:       log.WithComponent("events"),
		wake:      make(chan struct{}, 1),
	}
}

// Wake returns the channel the poll loop selects on. A send means at least
// one task event arrived since the last receive.
func (w *EventWatcher) Wake() <-chan struct{} {
	return w.wake
}

// Start connects and begins forwarding wakes. Reconnects with backoff until
// Stop is called.
func (w *EventWatcher) Start() {
	if w.running.Swap(true) {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run()
}

// Stop disconnects and waits for the read loop to exit.
func (w *EventWatcher) Stop() {
	if !w.running.Swap(false) {
		return
	}
	close(w.stopCh)
	<-w.doneCh
}

// eventJSON is the minimal slice of a node event we care about.
type eventJSON struct {
	EventType string `json:"event_type"`
}

// subscribeRequest is the subscription handshake sent after connect.
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

func (w *EventWatcher) run() {
	defer close(w.doneCh)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if err := w.connectAndRead(); err != nil {
			w.log.Warn("event_stream_disconnected", map[string]interface{}{
				"error": err.Error(),
			})
		}

		select {
		case <-w.stopCh:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connectAndRead holds one websocket session until error or stop.
func (w *EventWatcher) connectAndRead() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := subscribeRequest{
		Method: "subscribeEvents",
		Params: []string{w.packageID + "::task"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	w.log.Info("event_stream_connected", map[string]interface{}{
		"url": w.url,
	})

	// Unblock the read loop when Stop is called.
	go func() {
		<-w.stopCh
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if w.isTaskEvent(data) {
			w.notify()
		}
	}
}

// isTaskEvent reports whether a raw message is a task event for our package.
func (w *EventWatcher) isTaskEvent(data []byte) bool {
	var ev eventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return false
	}
	return strings.HasPrefix(ev.EventType, w.packageID+"::task::")
}

// notify delivers a wake without blocking; a pending wake is enough.
func (w *EventWatcher) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
