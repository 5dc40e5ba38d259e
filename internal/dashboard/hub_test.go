package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixedClock(h *Hub) {
	h.now = func() time.Time { return time.UnixMilli(1700000000123) }
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d; want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcast_Envelope(t *testing.T) {
	t.Parallel()

	h := New(quiet())
	fixedClock(h)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)

	h.Broadcast("groq:complete", Payload{"text": "hello world"})
	h.Broadcast("voice:open", nil)

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got, want := string(msg), `{"type":"groq:complete","payload":{"text":"hello world","timestamp":1700000000123}}`; got != want {
			t.Errorf("message = %s\nwant      %s", got, want)
		}

		_, msg, err = conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != "voice:open" || env.Payload["timestamp"] != float64(1700000000123) {
			t.Errorf("second message = %+v", env)
		}
	}
}

func TestHub_ClientDisconnectIsRemoved(t *testing.T) {
	t.Parallel()

	h := New(quiet())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	// Broadcasting with nobody connected is a no-op.
	h.Broadcast("voice:close", Payload{"reason": "user"})
}

func TestBroadcast_DropsForSlowClient(t *testing.T) {
	t.Parallel()

	h := New(quiet())
	slow := &client{send: make(chan []byte, clientBuffer)}
	h.clients[slow] = struct{}{}

	done := make(chan struct{})
	go func() {
		for range clientBuffer + 10 {
			h.Broadcast("voice:text", Payload{"text": "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}

	if got := len(slow.send); got != clientBuffer {
		t.Errorf("buffered = %d; want %d", got, clientBuffer)
	}
	if got := h.Dropped(); got != 10 {
		t.Errorf("Dropped = %d; want 10", got)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := New(quiet())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	dial(t, srv)
	waitClients(t, h, 1)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" || body.Clients != 1 {
		t.Errorf("healthz = %d %+v", resp.StatusCode, body)
	}

	resp, err = http.Post(srv.URL+"/healthz", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz = %d; want 405", resp.StatusCode)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	h := New(quiet())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, h, 1)

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client still readable after shutdown")
	}
}
