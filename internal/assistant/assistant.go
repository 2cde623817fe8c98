// Package assistant answers participant chat questions in the
// chat-assisted condition. The Provider abstraction keeps the rest of
// the system indifferent to whether answers come from a hosted model
// or the scripted fallback.
package assistant

import (
	"context"

	"github.com/tud-hci/ticketlab/internal/model"
)

// Document is a knowledge-base article made available to the assistant.
type Document struct {
	Title   string
	Content string
}

// Request is one chat turn: the conversation so far plus the ticket the
// participant currently has open, if any.
type Request struct {
	Messages []model.ChatMessage
	Ticket   *model.Ticket
}

// Provider generates assistant replies.
type Provider interface {
	Name() string
	Reply(ctx context.Context, req Request) (string, error)
}

// Greeting opens every assistant conversation.
const Greeting = "Hello! I'm your AI assistant. I can help you with knowledge base questions, policy information, and drafting customer responses. How can I assist you?"

// historyLimit caps how much conversation is sent per turn.
const historyLimit = 10

// recentMessages returns the last historyLimit non-empty messages.
func recentMessages(msgs []model.ChatMessage) []model.ChatMessage {
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	out := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "" || m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
