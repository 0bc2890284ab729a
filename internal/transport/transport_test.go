package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// collector gathers sink events on a channel.
type collector chan Event

func (c collector) sink(e Event) { c <- e }

func (c collector) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-c:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transport event")
		return Event{}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestWebSocketLifecycle(t *testing.T) {
	var handshakes atomic.Int32
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, rw)
		if err != nil {
			return
		}
		defer conn.Close()
		handshakes.Add(1)

		if err := wsutil.WriteServerText(conn, []byte(`{"type":"ping","message":"hello"}`)); err != nil {
			return
		}
		msg, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}
		received <- string(msg)
		_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusCode(4001), "bye"))
		// Wait for the client's close reply before dropping the socket.
		_, _, _ = wsutil.ReadClientData(conn)
	}))
	defer server.Close()

	events := make(collector, 16)
	conn := NewWebSocket(Config{URL: wsURL(server)}, events.sink, nil)

	if conn.Send([]byte("early")) {
		t.Fatal("Send succeeded before the connection was opened")
	}

	conn.Connect(context.Background())
	conn.Connect(context.Background()) // in flight: no second attempt

	if e := events.next(t); e.Kind != EventOpened {
		t.Fatalf("first event = %v, want opened", e.Kind)
	}
	e := events.next(t)
	if e.Kind != EventMessage || !strings.Contains(string(e.Payload), "hello") {
		t.Fatalf("second event = %v %s", e.Kind, e.Payload)
	}

	conn.Connect(context.Background()) // open: no-op
	if !conn.Send([]byte(`{"type":"pong"}`)) {
		t.Fatal("Send on open connection failed")
	}
	select {
	case got := <-received:
		if got != `{"type":"pong"}` {
			t.Fatalf("server received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}

	e = events.next(t)
	if e.Kind != EventClosed || e.Code != 4001 || e.Reason != "bye" {
		t.Fatalf("close event = %+v", e)
	}
	if conn.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", conn.State())
	}
	if conn.Send([]byte("late")) {
		t.Fatal("Send succeeded after close")
	}
	if n := handshakes.Load(); n != 1 {
		t.Fatalf("handshakes = %d, want 1", n)
	}
}

func TestWebSocketDialFailureReportsErrorThenClose(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	events := make(collector, 4)
	conn := NewWebSocket(Config{URL: url, DialTimeout: time.Second}, events.sink, nil)
	conn.Connect(context.Background())

	if e := events.next(t); e.Kind != EventError || e.Err == nil {
		t.Fatalf("first event = %+v, want error", e)
	}
	if e := events.next(t); e.Kind != EventClosed || e.Code != CodeAbnormal {
		t.Fatalf("second event = %+v, want abnormal close", e)
	}

	// A failed attempt leaves the connection free for the next one.
	if conn.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", conn.State())
	}
}
