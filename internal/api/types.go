package api

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the communication medium for a thread.
type Channel string

const (
	// ChannelAll is a filter-only pseudo-channel; no real thread carries it.
	ChannelAll      Channel = "all"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// ParseChannel validates a channel string, accepting the "all" pseudo-channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelAll, "":
		return ChannelAll, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelWeb:
		return ChannelWeb, nil
	default:
		return "", fmt.Errorf("invalid channel %q (use all, whatsapp, or web)", s)
	}
}

// Handler says whether the bot or a human agent is answering a thread.
type Handler string

const (
	HandlerBot   Handler = "bot"
	HandlerAgent Handler = "agent"
)

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"      // customer
	RoleAssistant Role = "assistant" // bot or agent reply
)

// Status is the delivery state of a message. Messages are immutable once
// created except for status transitions.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Customer is the person on the other end of a thread.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// LastMessage is the denormalized preview embedded in a chat head,
// updated by the server on every new message for the thread.
type LastMessage struct {
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHead is the summary record of one conversation thread.
type ChatHead struct {
	ID             string       `json:"id"`
	Channel        Channel      `json:"channel"`
	Customer       Customer     `json:"customer"`
	CurrentHandler Handler      `json:"currentHandler"`
	Assignee       string       `json:"assignee"`
	LastMessage    *LastMessage `json:"lastMessage,omitempty"`
}

// DisplayName returns the customer name, falling back to the phone number.
func (h ChatHead) DisplayName() string {
	if strings.TrimSpace(h.Customer.Name) != "" {
		return h.Customer.Name
	}
	return h.Customer.Phone
}

// LastMessageAt returns the preview timestamp, or the zero time for
// threads with no messages yet (which sort last).
func (h ChatHead) LastMessageAt() time.Time {
	if h.LastMessage == nil {
		return time.Time{}
	}
	return h.LastMessage.CreatedAt
}

// Message is one chat event within a thread.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Status    Status    `json:"status,omitempty"`
}

// NewThread is the live-channel payload announcing a brand-new thread.
type NewThread struct {
	ChatHead
	CompanyID string `json:"companyId"`
}

// Agent is a company user who can be assigned threads.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
