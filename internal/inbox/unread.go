package inbox

import (
	"sort"

	"github.com/botbridge/botbridge-cli/internal/api"
)

// UnreadSet tracks thread ids with unseen activity. Only customer
// messages (api.RoleUser) mark a thread unread: the server echoes the
// agent's own sends over the live channel, and those should not light up
// the inbox. Not persisted across runs.
//
// UnreadSet is not safe for concurrent use; the Engine serializes access.
type UnreadSet struct {
	ids map[string]struct{}
}

// Mark flags a thread as unread for an arriving live message when the
// message is customer-originated and its thread is not the open one.
// Returns true when the thread was newly marked.
func (u *UnreadSet) Mark(msg api.Message, openThreadID string) bool {
	if msg.Role != api.RoleUser || msg.ThreadID == openThreadID {
		return false
	}
	if u.ids == nil {
		u.ids = make(map[string]struct{})
	}
	if _, ok := u.ids[msg.ThreadID]; ok {
		return false
	}
	u.ids[msg.ThreadID] = struct{}{}
	return true
}

// Clear removes a thread from the set; called the moment it is opened.
func (u *UnreadSet) Clear(threadID string) {
	delete(u.ids, threadID)
}

// Has reports whether a thread has unseen activity.
func (u *UnreadSet) Has(threadID string) bool {
	_, ok := u.ids[threadID]
	return ok
}

// Count returns the number of unread threads.
func (u *UnreadSet) Count() int { return len(u.ids) }

// ThreadIDs returns the unread thread ids, sorted for stable output.
func (u *UnreadSet) ThreadIDs() []string {
	ids := make([]string, 0, len(u.ids))
	for id := range u.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CountByChannel tallies unread threads per channel using the head list
// to resolve each thread's channel.
func (u *UnreadSet) CountByChannel(heads []api.ChatHead) map[api.Channel]int {
	counts := make(map[api.Channel]int)
	for _, h := range heads {
		if u.Has(h.ID) {
			counts[h.Channel]++
		}
	}
	return counts
}
