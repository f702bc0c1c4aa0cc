// Package livewire is the websocket client for the Botbridge live
// channel: join rooms for a company and its threads, then receive
// new-message and new-thread events as they happen.
package livewire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

// DefaultPingTimeout is how long we wait without receiving any frame
// (including server pings) before treating the connection as dead.
// The server pings every ~5s, so 20s means ~4 missed pings.
var DefaultPingTimeout = 20 * time.Second

// ErrPingTimeout is returned when no frames are received within the ping timeout.
var ErrPingTimeout = errors.New("ping timeout: no frames received")

// Event names pushed by the server.
const (
	EventNewMessage = "new-message"
	EventNewThread  = "new-thread"
)

// frame is a raw live-channel JSON frame.
type frame struct {
	Type  string          `json:"type,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Room  string          `json:"room,omitempty"`
	// Reason accompanies disconnect frames.
	Reason string `json:"reason,omitempty"`
}

// Event is a message received from the live channel.
type Event struct {
	Name string          // "new-message" or "new-thread"
	Data json.RawMessage // the event payload
	Err  error           // non-nil on read error or disconnect
}

// Client is a live-channel websocket client.
type Client struct {
	conn *websocket.Conn
	url  string
}

// maxReadSize caps the maximum websocket frame size to 1 MB.
// Live-channel messages are small JSON; anything larger is likely malformed.
const maxReadSize = 1 << 20 // 1 MB

// Connect dials the live endpoint with a bearer token and waits for the
// welcome frame.
func Connect(ctx context.Context, url, token string) (*Client, error) {
	opts := &websocket.DialOptions{
		Subprotocols: []string{"botbridge-live-v1"},
	}
	if token != "" {
		opts.HTTPHeader = map[string][]string{
			"Authorization": {"Bearer " + token},
		}
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(maxReadSize)

	// Read the welcome frame.
	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("read welcome: %w", err)
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("parse welcome: %w", err)
	}
	if f.Type != "welcome" {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("expected welcome, got %q (reason: %s)", f.Type, f.Reason)
	}

	return &Client{conn: conn, url: url}, nil
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) join(ctx context.Context, room string) error {
	cmd := frame{Type: "join", Room: room}
	data, _ := json.Marshal(cmd)
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write join %s: %w", room, err)
	}
	return nil
}

// JoinCompany enters the company room, enabling new-thread events and
// new-message events for every thread in the company.
func (c *Client) JoinCompany(ctx context.Context, companyID string) error {
	if companyID == "" {
		return errors.New("company ID cannot be empty")
	}
	return c.join(ctx, "company:"+companyID)
}

// JoinThread enters a single thread's room. Joining is idempotent on the
// server side; joining a thread already joined is a no-op.
func (c *Client) JoinThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return errors.New("thread ID cannot be empty")
	}
	return c.join(ctx, "thread:"+threadID)
}

// Listen starts the read loop and returns a channel of events.
// Pings and internal frames are handled silently.
// The channel closes when the connection drops or ctx is cancelled.
//
// A rolling ping timeout detects half-dead connections: if no frame
// (including server pings) arrives within DefaultPingTimeout, the
// connection is treated as dead and an ErrPingTimeout is emitted.
func (c *Client) Listen(ctx context.Context) <-chan Event {
	return c.ListenWithTimeout(ctx, DefaultPingTimeout)
}

// ListenWithTimeout is like Listen but with a configurable ping timeout.
// Use 0 to disable the timeout (not recommended in production).
func (c *Client) ListenWithTimeout(ctx context.Context, pingTimeout time.Duration) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		for {
			// Per-read deadline so half-dead connections (no FIN/RST,
			// just silence) get detected.
			readCtx := ctx
			var readCancel context.CancelFunc
			if pingTimeout > 0 {
				readCtx, readCancel = context.WithTimeout(ctx, pingTimeout)
			}

			_, data, err := c.conn.Read(readCtx)

			if readCancel != nil {
				readCancel()
			}

			if err != nil {
				// Distinguish ping timeout from parent context cancellation.
				if pingTimeout > 0 && ctx.Err() == nil && readCtx.Err() != nil {
					err = ErrPingTimeout
				}
				select {
				case ch <- Event{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue // skip malformed frames
			}

			switch {
			case f.Type == "ping":
				continue
			case f.Type == "disconnect":
				select {
				case ch <- Event{Err: fmt.Errorf("disconnect (reason=%s)", f.Reason)}:
				case <-ctx.Done():
				}
				return
			case f.Type == "joined":
				continue
			case f.Event != "" && len(f.Data) > 0:
				select {
				case ch <- Event{Name: f.Event, Data: f.Data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
