package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ListChatHeads retrieves every thread summary visible to the company,
// optionally filtered by channel on the server side. ChannelAll (or empty)
// fetches all channels.
func (c *Client) ListChatHeads(ctx context.Context, channel Channel) ([]ChatHead, error) {
	query := url.Values{}
	query.Set("companyId", c.CompanyID)
	if channel != "" && channel != ChannelAll {
		query.Set("channel", string(channel))
	}
	var heads []ChatHead
	if err := c.Get(ctx, "/chat/chat-heads", query, &heads); err != nil {
		return nil, fmt.Errorf("failed to fetch chat heads: %w", err)
	}
	return heads, nil
}

// ChatHistory retrieves one page of messages for a thread. The server
// returns messages newest-first; offset skips that many newest messages,
// so offset=0 is the most recent page.
func (c *Client) ChatHistory(ctx context.Context, threadID string, offset int) ([]Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("thread ID cannot be empty")
	}
	if offset < 0 {
		offset = 0
	}
	query := url.Values{}
	query.Set("threadId", threadID)
	query.Set("offset", fmt.Sprintf("%d", offset))
	var messages []Message
	if err := c.Get(ctx, "/chat/chat-history", query, &messages); err != nil {
		return nil, fmt.Errorf("failed to fetch chat history for thread %s: %w", threadID, err)
	}
	return messages, nil
}

// SendWhatsApp sends an outbound WhatsApp message to a phone number.
func (c *Client) SendWhatsApp(ctx context.Context, to, message string) (*Message, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient phone number cannot be empty")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	body := map[string]string{
		"to":        to,
		"message":   message,
		"companyId": c.CompanyID,
	}
	var sent Message
	if err := c.Post(ctx, "/whatsapp/send", body, &sent); err != nil {
		return nil, fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	return &sent, nil
}

// SendWeb sends an agent reply into a web-widget thread.
func (c *Client) SendWeb(ctx context.Context, threadID, message string) (*Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("thread ID cannot be empty")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	body := map[string]string{
		"threadId": threadID,
		"message":  message,
	}
	var sent Message
	if err := c.Post(ctx, "/chat/chat-web-send", body, &sent); err != nil {
		return nil, fmt.Errorf("failed to send web message: %w", err)
	}
	return &sent, nil
}

// AssignRequest holds parameters for handing a thread to the bot or a
// human agent. Phone is required for WhatsApp threads so the server can
// notify the customer channel.
type AssignRequest struct {
	ThreadID        string
	Handler         Handler
	AssignedAgentID string
	Channel         Channel
	Phone           string
}

// Assign switches who handles a thread. Assigning to HandlerAgent requires
// AssignedAgentID; assigning back to HandlerBot clears the agent.
func (c *Client) Assign(ctx context.Context, req AssignRequest) error {
	if strings.TrimSpace(req.ThreadID) == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}
	switch req.Handler {
	case HandlerBot, HandlerAgent:
	default:
		return NewValidationError("handler", string(req.Handler), []string{string(HandlerBot), string(HandlerAgent)})
	}
	if req.Handler == HandlerAgent && strings.TrimSpace(req.AssignedAgentID) == "" {
		return fmt.Errorf("assigning to an agent requires an agent ID")
	}
	body := map[string]string{
		"threadId":        req.ThreadID,
		"chatHandler":     string(req.Handler),
		"assignedAgentId": req.AssignedAgentID,
		"channel":         string(req.Channel),
		"phone":           req.Phone,
		"companyId":       c.CompanyID,
	}
	if err := c.Patch(ctx, "/chat/assign", body, nil); err != nil {
		return fmt.Errorf("failed to assign thread %s: %w", req.ThreadID, err)
	}
	return nil
}

// MarkDone closes out a thread, removing it from the active inbox.
func (c *Client) MarkDone(ctx context.Context, threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}
	body := map[string]string{"threadId": threadID}
	if err := c.Patch(ctx, "/chat/mark-as-done", body, nil); err != nil {
		return fmt.Errorf("failed to mark thread %s as done: %w", threadID, err)
	}
	return nil
}
