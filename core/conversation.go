package core

import (
	"errors"
	"fmt"
)

// ErrConversationOrder is returned when an appended message would break the
// call/result ordering of the trace.
var ErrConversationOrder = errors.New("conversation order violation")

// Conversation is the ordered, append-only message trace of one agent.
//
// Every assistant message carrying function calls must be followed by exactly
// one tool message per call, in request order, before any other message is
// accepted. Messages are never reordered or removed. A Conversation is owned
// by a single agent and is not safe for concurrent mutation.
type Conversation struct {
	messages []Content
	pending  []FunctionCall
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message to the end of the trace.
func (c *Conversation) Append(msg Content) error {
	switch msg.Role {
	case RoleTool:
		responses := msg.FunctionResponses()
		if len(responses) != 1 {
			return fmt.Errorf("%w: tool message must carry exactly one function response, got %d", ErrConversationOrder, len(responses))
		}
		if len(c.pending) == 0 {
			return fmt.Errorf("%w: tool result %q without a pending call", ErrConversationOrder, responses[0].Name)
		}
		next := c.pending[0]
		if responses[0].ID != next.ID {
			return fmt.Errorf("%w: expected result for call %q (%s), got %q", ErrConversationOrder, next.ID, next.Name, responses[0].ID)
		}
		c.pending = c.pending[1:]
	case RoleUser, RoleAssistant:
		if len(c.pending) > 0 {
			return fmt.Errorf("%w: %d tool results outstanding", ErrConversationOrder, len(c.pending))
		}
		if msg.Role == RoleAssistant {
			c.pending = append(c.pending, msg.FunctionCalls()...)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrConversationOrder, msg.Role)
	}

	c.messages = append(c.messages, msg.Clone())

	return nil
}

// Messages returns a copy of the trace.
func (c *Conversation) Messages() []Content {
	out := make([]Content, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Content, bool) {
	if len(c.messages) == 0 {
		return Content{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// PendingCalls returns the calls still awaiting a tool result.
func (c *Conversation) PendingCalls() []FunctionCall {
	out := make([]FunctionCall, len(c.pending))
	copy(out, c.pending)
	return out
}

// Replay re-reads the trace into a fresh conversation. Because the trace is
// append-only and was validated on the way in, the replay yields the same
// message sequence.
func (c *Conversation) Replay() (*Conversation, error) {
	replayed := NewConversation()
	for i, m := range c.messages {
		if err := replayed.Append(m); err != nil {
			return nil, fmt.Errorf("replay message %d: %w", i, err)
		}
	}
	return replayed, nil
}
