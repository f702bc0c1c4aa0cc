package inbox

import (
	"sort"

	"github.com/botbridge/botbridge-cli/internal/api"
)

// Store is the authoritative, time-ordered chat head list. Exactly one
// head exists per thread id; ordering is descending by last-message time,
// with message-less threads (zero time) sorting last.
//
// Store is not safe for concurrent use; the Engine serializes access.
type Store struct {
	heads []api.ChatHead
}

// Replace installs a fresh snapshot and establishes the sort order.
func (s *Store) Replace(heads []api.ChatHead) {
	s.heads = make([]api.ChatHead, len(heads))
	copy(s.heads, heads)
	s.sort()
}

// Heads returns the full ordered list.
func (s *Store) Heads() []api.ChatHead {
	out := make([]api.ChatHead, len(s.heads))
	copy(out, s.heads)
	return out
}

// Get looks up a head by thread id.
func (s *Store) Get(threadID string) (api.ChatHead, bool) {
	for _, h := range s.heads {
		if h.ID == threadID {
			return h, true
		}
	}
	return api.ChatHead{}, false
}

// Len returns the number of heads.
func (s *Store) Len() int { return len(s.heads) }

// ApplyIncomingMessage updates the matching head's preview and moves it to
// the front. Returns false when no head matches the message's thread —
// the caller must reconcile (re-fetch the snapshot) rather than synthesize
// a head from partial data.
func (s *Store) ApplyIncomingMessage(msg api.Message) bool {
	for i := range s.heads {
		if s.heads[i].ID != msg.ThreadID {
			continue
		}
		head := s.heads[i]
		head.LastMessage = &api.LastMessage{
			Content:   msg.Content,
			Role:      msg.Role,
			CreatedAt: msg.CreatedAt,
		}
		// Move to front; the rest keeps its relative order.
		copy(s.heads[1:i+1], s.heads[:i])
		s.heads[0] = head
		return true
	}
	return false
}

// ApplyNewThread inserts a new head unless one with the same id already
// arrived via a snapshot (race with Load), then re-sorts.
// Returns true when the head was inserted.
func (s *Store) ApplyNewThread(head api.ChatHead) bool {
	for _, h := range s.heads {
		if h.ID == head.ID {
			return false
		}
	}
	s.heads = append(s.heads, head)
	s.sort()
	return true
}

func (s *Store) sort() {
	sort.SliceStable(s.heads, func(i, j int) bool {
		return s.heads[i].LastMessageAt().After(s.heads[j].LastMessageAt())
	})
}
