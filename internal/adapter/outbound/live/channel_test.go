package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

// wsServer upgrades inbound connections and pushes the configured frames
// before closing each connection.
type wsServer struct {
	t        *testing.T
	frames   []string
	connects atomic.Int64

	mu    sync.Mutex
	conns []*websocket.Conn
}

func (s *wsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.connects.Add(1)
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for _, f := range s.frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
}

func (s *wsServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestChannelDeliversMessages(t *testing.T) {
	ws := &wsServer{t: t, frames: []string{
		`{"type":"tool_status_changed","tool_id":"wazuh"}`,
		`{"type":"anomaly_detected","severity":"high"}`,
	}}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	var mu sync.Mutex
	var got []Message
	ch := NewChannel(Config{URL: wsURL(srv), ReconnectDelay: time.Hour})
	unsub := ch.Subscribe(func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	defer unsub()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0].Type != "tool_status_changed" || got[1].Type != "anomaly_detected" {
		t.Fatalf("unexpected message types: %q, %q", got[0].Type, got[1].Type)
	}
	if !strings.Contains(string(got[1].Raw), `"severity":"high"`) {
		t.Fatalf("raw frame not preserved: %s", got[1].Raw)
	}
}

func TestChannelDropsUndecodableFrames(t *testing.T) {
	ws := &wsServer{t: t, frames: []string{
		`not json at all`,
		`{"type":"status_update"}`,
	}}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	var mu sync.Mutex
	var got []Message
	ch := NewChannel(Config{URL: wsURL(srv), ReconnectDelay: time.Hour})
	unsub := ch.Subscribe(func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	defer unsub()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0].Type != "status_update" {
		t.Fatalf("expected the decodable frame only, got type %q", got[0].Type)
	}
}

func TestChannelReconnectsAfterClose(t *testing.T) {
	ws := &wsServer{t: t}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	type recorder struct{ n atomic.Int64 }
	rec := &recorder{}
	ch := NewChannel(Config{
		URL:            wsURL(srv),
		ReconnectDelay: 10 * time.Millisecond,
		Metrics:        reconnectFunc(func() { rec.n.Add(1) }),
	})
	unsub := ch.Subscribe(func(Message) {})
	defer unsub()

	waitFor(t, func() bool { return ws.connects.Load() == 1 })
	ws.closeAll()
	waitFor(t, func() bool { return ws.connects.Load() >= 2 })

	if rec.n.Load() < 1 {
		t.Fatalf("expected at least one recorded reconnect, got %d", rec.n.Load())
	}
}

func TestChannelUnsubscribeStopsReconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	ws := &wsServer{t: t}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	ch := NewChannel(Config{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond})
	unsub := ch.Subscribe(func(Message) {})

	waitFor(t, func() bool { return ws.connects.Load() == 1 })
	unsub()

	before := ws.connects.Load()
	time.Sleep(60 * time.Millisecond)
	if after := ws.connects.Load(); after != before {
		t.Fatalf("connections after unsubscribe: got %d, want %d", after, before)
	}
}

func TestChannelUnsubscribeDuringDialClosesFreshConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	ws := &wsServer{t: t}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	ch := NewChannel(Config{URL: wsURL(srv), ReconnectDelay: time.Hour})

	// Complete the dial only after cancellation has been requested, so the
	// fresh connection is stored when the unsubscribe teardown has already
	// swept a nil conn.
	base := ch.dial
	ch.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		<-ctx.Done()
		return base(context.Background(), url)
	}

	unsub := ch.Subscribe(func(Message) {})

	done := make(chan struct{})
	go func() {
		unsub()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe did not return; late-dialed connection was not torn down")
	}

	ch.mu.Lock()
	leftover := ch.conn
	ch.mu.Unlock()
	if leftover != nil {
		t.Fatal("connection still stored after unsubscribe")
	}
}

func TestChannelStopsAfterMaxAttempts(t *testing.T) {
	defer goleak.VerifyNone(t)

	// No server listening on this address.
	ch := NewChannel(Config{
		URL:            "ws://127.0.0.1:1",
		ReconnectDelay: time.Millisecond,
		MaxAttempts:    3,
	})
	unsub := ch.Subscribe(func(Message) {})
	defer unsub()

	// The loop exits on its own once the cap is reached; unsubscribe must
	// still return promptly afterwards.
	time.Sleep(50 * time.Millisecond)
}

func TestChannelBackoffGrowsAndCaps(t *testing.T) {
	ch := NewChannel(Config{
		ReconnectDelay: 100 * time.Millisecond,
		BackoffFactor:  2,
		MaxDelay:       300 * time.Millisecond,
	})

	d := ch.cfg.ReconnectDelay
	d = ch.nextDelay(d)
	if d != 200*time.Millisecond {
		t.Fatalf("first growth: got %v, want 200ms", d)
	}
	d = ch.nextDelay(d)
	if d != 300*time.Millisecond {
		t.Fatalf("capped growth: got %v, want 300ms", d)
	}
	d = ch.nextDelay(d)
	if d != 300*time.Millisecond {
		t.Fatalf("delay exceeded cap: got %v", d)
	}
}

func TestChannelFixedDelayByDefault(t *testing.T) {
	ch := NewChannel(Config{})
	if ch.cfg.ReconnectDelay != DefaultReconnectDelay {
		t.Fatalf("default delay: got %v, want %v", ch.cfg.ReconnectDelay, DefaultReconnectDelay)
	}
	if d := ch.nextDelay(ch.cfg.ReconnectDelay); d != DefaultReconnectDelay {
		t.Fatalf("fixed delay grew: got %v", d)
	}
}

// reconnectFunc adapts a func to ReconnectRecorder.
type reconnectFunc func()

func (f reconnectFunc) RecordLiveReconnect() { f() }
