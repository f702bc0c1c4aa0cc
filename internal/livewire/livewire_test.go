package livewire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// mockLive is a minimal live-channel server for testing.
func mockLive(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: []string{"botbridge-live-v1"},
		})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer func() { _ = conn.CloseNow() }()
		handler(r.Context(), conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectReceivesWelcome(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: []string{"botbridge-live-v1"},
		})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer func() { _ = conn.CloseNow() }()
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"type":"welcome"}`))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok123")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()

	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", gotAuth)
	}
}

func TestConnectRejectsNoWelcome(t *testing.T) {
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"disconnect","reason":"unauthorized"}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, wsURL(srv), "tok")
	if err == nil {
		t.Fatal("expected error for non-welcome frame")
	}
}

func TestJoinSendsRoomFrames(t *testing.T) {
	rooms := make(chan string, 2)
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"welcome"}`))
		for i := 0; i < 2; i++ {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var f frame
			_ = json.Unmarshal(data, &f)
			if f.Type != "join" {
				t.Errorf("expected join frame, got %q", f.Type)
			}
			rooms <- f.Room
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.JoinCompany(ctx, "co-1"); err != nil {
		t.Fatalf("JoinCompany: %v", err)
	}
	if err := c.JoinThread(ctx, "t-9"); err != nil {
		t.Fatalf("JoinThread: %v", err)
	}

	if got := <-rooms; got != "company:co-1" {
		t.Errorf("room = %q, want company:co-1", got)
	}
	if got := <-rooms; got != "thread:t-9" {
		t.Errorf("room = %q, want thread:t-9", got)
	}
}

func TestJoinValidatesIDs(t *testing.T) {
	c := &Client{}
	if err := c.JoinCompany(context.Background(), ""); err == nil {
		t.Error("expected error for empty company ID")
	}
	if err := c.JoinThread(context.Background(), ""); err == nil {
		t.Error("expected error for empty thread ID")
	}
}

func TestListenDeliversEvents(t *testing.T) {
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"welcome"}`))
		_, _, _ = conn.Read(ctx) // join
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"joined","room":"company:co-1"}`))

		// ping should be filtered
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`))

		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"new-message","data":{"id":"m1","threadId":"t1","role":"user","content":"hi"}}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()
	_ = c.JoinCompany(ctx, "co-1")

	events := c.Listen(ctx)
	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("event error: %v", ev.Err)
		}
		if ev.Name != EventNewMessage {
			t.Errorf("event name = %q, want new-message", ev.Name)
		}
		var payload map[string]any
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["id"] != "m1" {
			t.Errorf("payload id = %v, want m1", payload["id"])
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestListenHandlesDisconnect(t *testing.T) {
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"welcome"}`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"disconnect","reason":"server_restart"}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()

	events := c.Listen(ctx)
	select {
	case ev := <-events:
		if ev.Err == nil {
			t.Fatal("expected error for disconnect")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for disconnect event")
	}
}

func TestListenPingTimeoutOnSilence(t *testing.T) {
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"welcome"}`))
		// Send nothing — simulate dead connection.
		time.Sleep(2 * time.Second)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()

	events := c.ListenWithTimeout(ctx, 200*time.Millisecond)
	select {
	case ev := <-events:
		if ev.Err == nil {
			t.Fatal("expected error from ping timeout")
		}
		if !errors.Is(ev.Err, ErrPingTimeout) {
			t.Fatalf("expected ErrPingTimeout, got: %v", ev.Err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for ping timeout event")
	}
}

func TestListenPingsKeepConnectionAlive(t *testing.T) {
	srv := mockLive(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"welcome"}`))

		// Pings arrive faster than the timeout; connection must stay alive.
		for i := 0; i < 5; i++ {
			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"new-thread","data":{"id":"t2","channel":"web","companyId":"co-1"}}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = c.Close() }()

	events := c.ListenWithTimeout(ctx, 500*time.Millisecond)
	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("unexpected error (pings should have kept connection alive): %v", ev.Err)
		}
		if ev.Name != EventNewThread {
			t.Errorf("event name = %q, want new-thread", ev.Name)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
