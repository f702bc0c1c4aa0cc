package inbox

import (
	"github.com/botbridge/botbridge-cli/internal/api"
)

// clockLayout renders timestamps the way the thread view shows them.
const clockLayout = "3:04 PM"

// Entry is one message in the open thread's buffer, with its display time
// pre-formatted at merge time so every consumer sees the same string.
type Entry struct {
	api.Message
	DisplayTime string `json:"displayTime"`
}

// Buffer holds the message list for the one open thread, oldest-first.
// History pages replace it, keeping live arrivals the page missed; live
// events append if their id is new. Closing discards the buffer —
// reopening a thread re-fetches, which trades redundant fetches for
// guaranteed freshness.
//
// Buffer is not safe for concurrent use; the Engine serializes access.
type Buffer struct {
	threadID string
	entries  []Entry
	ids      map[string]struct{}
}

// ThreadID returns the open thread's id, or "" when closed.
func (b *Buffer) ThreadID() string { return b.threadID }

// OpenFor readies the buffer for threadID: previous contents are
// discarded, but appends for the thread are accepted from this point on.
// Opening before the history fetch starts means live messages that race
// the fetch are held instead of dropped.
func (b *Buffer) OpenFor(threadID string) {
	b.threadID = threadID
	b.entries = nil
	b.ids = make(map[string]struct{})
}

// Replace installs a newest-first history page for threadID, reversing it
// to oldest-first for display. Entries already held for the same thread
// and absent from the page are kept, re-appended after it: they are live
// arrivals the page was built too early to include.
func (b *Buffer) Replace(threadID string, newestFirst []api.Message) {
	held := b.entries
	if b.threadID != threadID {
		held = nil
	}
	b.threadID = threadID
	b.entries = make([]Entry, 0, len(newestFirst)+len(held))
	b.ids = make(map[string]struct{}, len(newestFirst)+len(held))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		msg := newestFirst[i]
		if _, dup := b.ids[msg.ID]; dup {
			continue
		}
		b.ids[msg.ID] = struct{}{}
		b.entries = append(b.entries, newEntry(msg))
	}
	for _, entry := range held {
		if _, dup := b.ids[entry.ID]; dup {
			continue
		}
		b.ids[entry.ID] = struct{}{}
		b.entries = append(b.entries, entry)
	}
}

// Append adds a live message to the buffer. It is the sole deduplication
// point: a message whose id is already present is dropped (the server
// echoes sends back over the live channel). Messages for other threads
// are ignored. Arrival order is preserved; no re-sort.
func (b *Buffer) Append(msg api.Message) bool {
	if b.threadID == "" || msg.ThreadID != b.threadID {
		return false
	}
	if _, dup := b.ids[msg.ID]; dup {
		return false
	}
	b.ids[msg.ID] = struct{}{}
	b.entries = append(b.entries, newEntry(msg))
	return true
}

// Close discards the buffer. There is no per-thread cache.
func (b *Buffer) Close() {
	b.threadID = ""
	b.entries = nil
	b.ids = nil
}

// Messages returns the buffered entries, oldest-first.
func (b *Buffer) Messages() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int { return len(b.entries) }

// NewEntry wraps a message with its merge-time display timestamp.
func NewEntry(msg api.Message) Entry {
	return newEntry(msg)
}

func newEntry(msg api.Message) Entry {
	return Entry{
		Message:     msg,
		DisplayTime: msg.CreatedAt.Local().Format(clockLayout),
	}
}
