// Package realtime listens for server change notifications over a
// websocket so the client can pull fresh state without waiting for the
// next periodic cycle.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one change notification from the server.
type Event struct {
	Type     string `json:"type"`               // e.g. "note.updated", "sync.required"
	EntityID string `json:"entity_id,omitempty"`
}

// Config holds listener settings.
type Config struct {
	URL          string        // websocket endpoint
	Token        func() string // bearer token per connection attempt, may be nil
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	MaxAttempts  int // consecutive failed dials before giving up
}

// Listener maintains a websocket connection to the notification
// endpoint, reconnecting with exponential backoff when it drops and
// giving up after MaxAttempts consecutive failed dials. Each received
// event is handed to the callback; malformed frames are logged and
// skipped.
type Listener struct {
	cfg     Config
	onEvent func(Event)
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	running   bool
	connected bool
}

// New creates a Listener. onEvent is called from the read goroutine and
// must not block.
func New(cfg Config, onEvent func(Event), logger *slog.Logger) *Listener {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Listener{
		cfg:     cfg,
		onEvent: onEvent,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the connection loop. Calling Start twice is a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	l.wg.Add(1)
	go l.loop(ctx)
}

// Stop closes the connection loop and waits for it to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	close(l.stopCh)
	l.wg.Wait()
}

// Connected reports whether a websocket is currently open.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Listener) loop(ctx context.Context) {
	defer l.wg.Done()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		default:
		}

		connected, err := l.run(ctx)
		if connected {
			attempts = 0
		}
		if err != nil {
			attempts++
			if attempts >= l.cfg.MaxAttempts {
				// The endpoint looks dead. Stop hammering it; the periodic
				// sync cycle still runs, and a fresh Start (with a clean
				// attempt count) can reinstate the listener.
				l.logger.Warn("realtime reconnect attempts exhausted",
					"attempts", attempts, "error", err)
				l.mu.Lock()
				l.running = false
				l.mu.Unlock()
				return
			}
			wait := l.reconnectWait(attempts)
			l.logger.Debug("realtime connection lost", "attempt", attempts, "retry_in", wait, "error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			case <-l.stopCh:
				return
			}
			continue
		}
		// Clean shutdown from the read loop means we were stopped.
		return
	}
}

// reconnectWait doubles per consecutive failed attempt up to the cap.
func (l *Listener) reconnectWait(attempts int) time.Duration {
	wait := l.cfg.ReconnectMin << (attempts - 1)
	if wait > l.cfg.ReconnectMax || wait <= 0 {
		wait = l.cfg.ReconnectMax
	}
	return wait
}

// run dials once and reads until the connection fails or Stop is called.
// connected reports whether the dial succeeded, so the caller can reset
// its backoff.
func (l *Listener) run(ctx context.Context) (connected bool, _ error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	var header map[string][]string
	if l.cfg.Token != nil {
		if tok := l.cfg.Token(); tok != "" {
			header = map[string][]string{"Authorization": {"Bearer " + tok}}
		}
	}

	conn, _, err := dialer.DialContext(ctx, l.cfg.URL, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	l.setConnected(true)
	defer l.setConnected(false)
	l.logger.Info("realtime connected", "url", l.cfg.URL)

	// Unblock ReadMessage when Stop is called.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-l.stopCh:
			conn.Close()
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.stopCh:
				return true, nil
			case <-ctx.Done():
				return true, nil
			default:
				return true, err
			}
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.logger.Warn("dropping malformed realtime frame", "error", err)
			continue
		}
		if l.onEvent != nil {
			l.onEvent(ev)
		}
	}
}

func (l *Listener) setConnected(connected bool) {
	l.mu.Lock()
	l.connected = connected
	l.mu.Unlock()
}
