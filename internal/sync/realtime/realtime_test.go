package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"aicopilot/core/internal/logging"
)

var upgrader = websocket.Upgrader{}

// wsServer runs a test websocket endpoint calling handler per connection.
func wsServer(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testConfig(url string) Config {
	return Config{
		URL:          url,
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
	}
}

func TestListenerDeliversEvents(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"note.updated","entity_id":"srv-1"}`))
		// Hold the connection open until the client leaves.
		conn.ReadMessage()
	})

	var mu sync.Mutex
	var events []Event
	l := New(testConfig(url), func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}, logging.Discard())

	l.Start(context.Background())
	defer l.Stop()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	})
	mu.Lock()
	defer mu.Unlock()
	if events[0].Type != "note.updated" || events[0].EntityID != "srv-1" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestListenerSkipsMalformedFrames(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"sync.required"}`))
		conn.ReadMessage()
	})

	got := make(chan Event, 4)
	l := New(testConfig(url), func(ev Event) { got <- ev }, logging.Discard())
	l.Start(context.Background())
	defer l.Stop()

	select {
	case ev := <-got:
		if ev.Type != "sync.required" {
			t.Errorf("event = %+v, want the well-formed frame only", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestListenerReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	url := wsServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		if n == 1 {
			return // drop the first connection immediately
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"sync.required"}`))
		conn.ReadMessage()
	})

	got := make(chan Event, 1)
	l := New(testConfig(url), func(ev Event) { got <- ev }, logging.Discard())
	l.Start(context.Background())
	defer l.Stop()

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not reconnect")
	}
	mu.Lock()
	defer mu.Unlock()
	if conns < 2 {
		t.Errorf("connections = %d, want at least 2", conns)
	}
}

func TestListenerGivesUpAfterMaxAttempts(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{
		URL:          "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectMin: 5 * time.Millisecond,
		ReconnectMax: 10 * time.Millisecond,
		MaxAttempts:  3,
	}
	l := New(cfg, nil, logging.Discard())
	l.Start(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return !l.running
	})
	mu.Lock()
	if dials != 3 {
		t.Errorf("dials = %d, want 3", dials)
	}
	mu.Unlock()

	// No further dials once the loop has given up.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	if dials != 3 {
		t.Errorf("dials after give-up = %d, want 3", dials)
	}
	mu.Unlock()

	// A fresh Start resumes with a clean attempt count.
	l.Start(context.Background())
	defer l.Stop()
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials > 3
	})
}

func TestReconnectWaitDoublesUpToCap(t *testing.T) {
	l := New(Config{
		URL:          "ws://unused",
		ReconnectMin: time.Second,
		ReconnectMax: 30 * time.Second,
	}, nil, logging.Discard())

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := l.reconnectWait(i + 1); got != w {
			t.Errorf("attempt %d: wait = %v, want %v", i+1, got, w)
		}
	}
}

func TestStopClosesConnection(t *testing.T) {
	connected := make(chan struct{})
	url := wsServer(t, func(conn *websocket.Conn) {
		close(connected)
		conn.ReadMessage()
	})

	l := New(testConfig(url), nil, logging.Discard())
	l.Start(context.Background())

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("never connected")
	}
	waitFor(t, time.Second, func() bool { return l.Connected() })

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	if l.Connected() {
		t.Error("still reported connected after Stop")
	}
}
