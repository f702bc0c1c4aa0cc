package inbox

import (
	"strings"

	"github.com/botbridge/botbridge-cli/internal/api"
)

// Visible projects the full head list down to what the current channel
// selection and search query allow. Pure: the input slice is never
// mutated. ChannelAll with an empty query is the identity projection.
func Visible(heads []api.ChatHead, channel api.Channel, query string) []api.ChatHead {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]api.ChatHead, 0, len(heads))
	for _, h := range heads {
		if channel != "" && channel != api.ChannelAll && h.Channel != channel {
			continue
		}
		if query != "" && !matchesQuery(h, query) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// matchesQuery is a case-insensitive substring match against the customer
// name or phone.
func matchesQuery(h api.ChatHead, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(h.Customer.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(h.Customer.Phone), lowerQuery)
}

// RepairSelection keeps the selected thread valid against the visible
// list: an already-visible selection is kept, a filtered-out one falls
// back to the first visible head, and an empty list clears the selection.
// An empty selection stays empty; filter changes never open a thread on
// their own.
func RepairSelection(visible []api.ChatHead, selected string) string {
	if selected == "" {
		return ""
	}
	for _, h := range visible {
		if h.ID == selected {
			return selected
		}
	}
	if len(visible) > 0 {
		return visible[0].ID
	}
	return ""
}
