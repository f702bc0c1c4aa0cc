package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/botbridge/botbridge-cli/internal/api"
)

// DefaultSearchDebounce is how long query edits settle before the filter
// is recomputed.
const DefaultSearchDebounce = 400 * time.Millisecond

// API is the REST surface the engine consumes.
type API interface {
	ListChatHeads(ctx context.Context, channel api.Channel) ([]api.ChatHead, error)
	ChatHistory(ctx context.Context, threadID string, offset int) ([]api.Message, error)
}

// Engine composes the chat head store, the open-thread buffer, the unread
// set, and the channel/search filter. Live events flow through
// HandleMessage/HandleNewThread; user actions through Open, SetChannel,
// and SetQuery. All state mutations are serialized by one mutex, the Go
// rendition of a single event loop.
type Engine struct {
	mu     sync.Mutex
	client API

	store  Store
	buffer Buffer
	unread UnreadSet

	channel  api.Channel
	query    string
	selected string

	// generation invalidates in-flight history fetches: every selection
	// change bumps it, and a fetch only commits if the generation it
	// started under is still current.
	generation uint64

	debounce    time.Duration
	searchTimer *time.Timer

	// ctx drives fetches triggered internally (debounced query repair,
	// auto-select). Set by Load.
	ctx context.Context

	onChange func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce overrides the search debounce interval. Zero disables
// debouncing; SetQuery then applies immediately.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithOnChange registers a callback invoked after every state change.
// Called without the engine lock held.
func WithOnChange(fn func()) Option {
	return func(e *Engine) { e.onChange = fn }
}

// NewEngine creates an Engine over the given REST client.
func NewEngine(client API, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		channel:  api.ChannelAll,
		debounce: DefaultSearchDebounce,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot is a consistent view of the inbox for rendering.
type Snapshot struct {
	Heads    []api.ChatHead `json:"heads"`
	Visible  []api.ChatHead `json:"visible"`
	Selected string         `json:"selected,omitempty"`
	Messages []Entry        `json:"messages,omitempty"`
	Unread   []string       `json:"unread,omitempty"`
}

// Snapshot returns the current inbox state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	heads := e.store.Heads()
	return Snapshot{
		Heads:    heads,
		Visible:  Visible(heads, e.channel, e.query),
		Selected: e.selected,
		Messages: e.buffer.Messages(),
		Unread:   e.unread.ThreadIDs(),
	}
}

// Selected returns the open thread id, or "".
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Head looks up a chat head by thread id.
func (e *Engine) Head(threadID string) (api.ChatHead, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(threadID)
}

// Channel returns the active channel filter.
func (e *Engine) Channel() api.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel
}

// Load fetches the initial chat head snapshot for the channel scope.
// ctx also drives fetches the engine later triggers on its own.
func (e *Engine) Load(ctx context.Context, channel api.Channel) error {
	heads, err := e.client.ListChatHeads(ctx, channel)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.ctx = ctx
	e.channel = channel
	e.store.Replace(heads)
	e.mu.Unlock()
	e.notify()
	return nil
}

// Open makes threadID the open thread: clears its unread flag, discards
// the previous buffer, and fetches history. The buffer opens for the
// thread before the fetch starts, so live messages racing the fetch are
// held and merged when the page lands. A fetch that resolves after the
// selection moved on is discarded, so switching threads while one is
// still loading can never show the wrong messages.
func (e *Engine) Open(ctx context.Context, threadID string) error {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.selected = threadID
	e.unread.Clear(threadID)
	e.buffer.OpenFor(threadID)
	e.mu.Unlock()
	e.notify()

	history, err := e.client.ChatHistory(ctx, threadID, 0)

	e.mu.Lock()
	if e.generation != gen {
		// Stale: the user switched threads while this fetch was in flight.
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to open thread %s: %w", threadID, err)
	}
	e.buffer.Replace(threadID, history)
	e.mu.Unlock()
	e.notify()
	return nil
}

// CloseThread discards the open thread's buffer and clears the selection.
func (e *Engine) CloseThread() {
	e.mu.Lock()
	e.generation++
	e.selected = ""
	e.buffer.Close()
	e.mu.Unlock()
	e.notify()
}

// HandleMessage applies one live message event: the head list reorders,
// the open thread's buffer appends (deduplicated), and other threads get
// an unread mark for customer messages. A message for a thread missing
// from the store triggers Reconcile rather than being dropped.
func (e *Engine) HandleMessage(ctx context.Context, msg api.Message) error {
	e.mu.Lock()
	known := e.store.ApplyIncomingMessage(msg)
	if msg.ThreadID == e.selected {
		e.buffer.Append(msg)
	} else {
		e.unread.Mark(msg, e.selected)
	}
	e.mu.Unlock()
	e.notify()

	if !known {
		return e.Reconcile(ctx)
	}
	return nil
}

// HandleNewThread inserts a freshly created thread's head and, when no
// thread is open, auto-selects it (fetching its history).
func (e *Engine) HandleNewThread(ctx context.Context, nt api.NewThread) error {
	e.mu.Lock()
	e.store.ApplyNewThread(nt.ChatHead)
	autoSelect := e.selected == ""
	e.mu.Unlock()
	e.notify()

	if autoSelect {
		return e.Open(ctx, nt.ID)
	}
	return nil
}

// Reconcile re-fetches the chat head snapshot. Invoked when a live
// message references a thread the store does not know, which means the
// local list has drifted from the server's view.
func (e *Engine) Reconcile(ctx context.Context) error {
	e.mu.Lock()
	channel := e.channel
	e.mu.Unlock()

	heads, err := e.client.ListChatHeads(ctx, channel)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	e.mu.Lock()
	e.store.Replace(heads)
	e.mu.Unlock()
	e.notify()
	return nil
}

// SetChannel switches the channel filter and repairs the selection: a
// filtered-out open thread falls back to the first visible head (opening
// it), or clears when nothing is visible.
func (e *Engine) SetChannel(ctx context.Context, channel api.Channel) error {
	e.mu.Lock()
	e.channel = channel
	newSel := RepairSelection(Visible(e.store.Heads(), e.channel, e.query), e.selected)
	changed := newSel != e.selected
	e.mu.Unlock()
	e.notify()

	if !changed {
		return nil
	}
	if newSel == "" {
		e.CloseThread()
		return nil
	}
	return e.Open(ctx, newSel)
}

// SetQuery schedules a debounced search update. Each edit restarts the
// timer; only the settled value is applied.
func (e *Engine) SetQuery(query string) {
	e.mu.Lock()
	if e.debounce <= 0 {
		e.mu.Unlock()
		e.applyQuery(query)
		return
	}
	if e.searchTimer != nil {
		e.searchTimer.Stop()
	}
	e.searchTimer = time.AfterFunc(e.debounce, func() {
		e.applyQuery(query)
	})
	e.mu.Unlock()
}

// SetQueryNow applies a search query immediately, bypassing the debounce.
func (e *Engine) SetQueryNow(query string) {
	e.mu.Lock()
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}
	e.mu.Unlock()
	e.applyQuery(query)
}

func (e *Engine) applyQuery(query string) {
	e.mu.Lock()
	e.query = query
	newSel := RepairSelection(Visible(e.store.Heads(), e.channel, e.query), e.selected)
	changed := newSel != e.selected
	ctx := e.ctx
	e.mu.Unlock()
	e.notify()

	if !changed {
		return
	}
	if newSel == "" {
		e.CloseThread()
		return
	}
	if err := e.Open(ctx, newSel); err != nil {
		slog.Warn("selection repair failed", "thread", newSel, "error", err)
	}
}

// Unread reports whether a thread has unseen activity.
func (e *Engine) Unread(threadID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unread.Has(threadID)
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
