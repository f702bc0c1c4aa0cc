// Package inbox is the live inbox core: it keeps the ordered chat head
// list, the open thread's message buffer, and the unread set consistent
// while REST snapshots and live-channel events interleave.
package inbox

import (
	"context"
	"sync"

	"github.com/botbridge/botbridge-cli/internal/api"
)

// Conn is the slice of the live channel the registry drives. A
// *livewire.Client satisfies it.
type Conn interface {
	JoinCompany(ctx context.Context, companyID string) error
	JoinThread(ctx context.Context, threadID string) error
}

// MessageFunc is a per-thread message callback.
type MessageFunc func(api.Message)

// Detach releases a thread callback registered with JoinThread. Safe to
// call multiple times; a no-op if the callback was already replaced.
type Detach func()

// Registry keeps exactly one message callback per thread id and one
// company room per company. It owns no transport policy: reconnects are
// the caller's job (re-invoke SubscribeCompany/Resubscribe on a fresh
// connection).
type Registry struct {
	mu      sync.Mutex
	conn    Conn
	company string
	onError func(error)
	threads map[string]*registration
}

// registration wraps a callback so Detach can tell whether its entry was
// replaced by a later JoinThread call.
type registration struct {
	fn MessageFunc
}

// NewRegistry wraps an established live-channel connection.
func NewRegistry(conn Conn) *Registry {
	return &Registry{
		conn:    conn,
		threads: make(map[string]*registration),
	}
}

// SubscribeCompany joins the company room. Re-subscribing to the same
// company does not join a second room; it only replaces the error handler
// from the prior call.
func (r *Registry) SubscribeCompany(ctx context.Context, companyID string, onError func(error)) error {
	r.mu.Lock()
	r.onError = onError
	already := r.company == companyID
	r.mu.Unlock()

	if already {
		return nil
	}
	if err := r.conn.JoinCompany(ctx, companyID); err != nil {
		return err
	}
	r.mu.Lock()
	r.company = companyID
	r.mu.Unlock()
	return nil
}

// JoinThread registers fn for every message event on threadID. Calling
// again for the same thread replaces the previous callback, so a message
// is never delivered twice. The returned Detach removes fn unless it has
// already been replaced.
func (r *Registry) JoinThread(ctx context.Context, threadID string, fn MessageFunc) (Detach, error) {
	if err := r.conn.JoinThread(ctx, threadID); err != nil {
		return nil, err
	}

	reg := &registration{fn: fn}
	r.mu.Lock()
	r.threads[threadID] = reg
	r.mu.Unlock()

	detach := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Only remove if our registration is still the active one.
		if r.threads[threadID] == reg {
			delete(r.threads, threadID)
		}
	}
	return detach, nil
}

// LeaveThread drops the callback for threadID. Idempotent.
func (r *Registry) LeaveThread(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, threadID)
}

// UnsubscribeAll drops every registered callback and forgets the company
// room. Idempotent; safe to call on an already-empty registry.
func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads = make(map[string]*registration)
	r.company = ""
	r.onError = nil
}

// Dispatch routes a live message to the thread's callback. Returns false
// when no callback is registered for the message's thread.
func (r *Registry) Dispatch(msg api.Message) bool {
	r.mu.Lock()
	reg, ok := r.threads[msg.ThreadID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	reg.fn(msg)
	return true
}

// ReportError hands a transport error to the current error handler, if any.
func (r *Registry) ReportError(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil && err != nil {
		fn(err)
	}
}

// Resubscribe re-joins the company room and every registered thread room
// on a fresh connection after a reconnect. Callbacks are preserved.
func (r *Registry) Resubscribe(ctx context.Context, conn Conn) error {
	r.mu.Lock()
	r.conn = conn
	company := r.company
	ids := make([]string, 0, len(r.threads))
	for id := range r.threads {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if company != "" {
		if err := conn.JoinCompany(ctx, company); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := conn.JoinThread(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ThreadIDs returns the currently registered thread ids.
func (r *Registry) ThreadIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.threads))
	for id := range r.threads {
		ids = append(ids, id)
	}
	return ids
}
