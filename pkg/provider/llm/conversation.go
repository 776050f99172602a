package llm

import (
	"context"
	"fmt"
	"sync"
)

// DefaultPersona is the system prompt the assistant runs with unless
// overridden through WithSystemPrompt.
const DefaultPersona = "You are a helpful assistant named Asthralios. " +
	"You have an altruistic tone like Alfred is to Batman and Jarvis is to Iron Man. " +
	"You are a voice assistant that can help with a variety of tasks. " +
	"You are careful not to be too wordy."

// defaultMaxTurns bounds the rolling history at 32 user/assistant exchanges.
const defaultMaxTurns = 32

// ConversationOption customizes a Conversation.
type ConversationOption func(*Conversation)

// WithSystemPrompt replaces the default persona system prompt.
func WithSystemPrompt(prompt string) ConversationOption {
	return func(c *Conversation) {
		c.system = Message{Role: RoleSystem, Content: prompt}
	}
}

// WithMaxTurns bounds how many user/assistant exchanges the rolling history
// keeps. Older exchanges are dropped first; the system prompt always stays.
func WithMaxTurns(n int) ConversationOption {
	return func(c *Conversation) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// Conversation is a stateful dialogue over a stateless Provider: it holds the
// persona system prompt and the rolling history, appending one user and one
// assistant message per successful Converse call.
//
// Safe for concurrent use; calls are serialized so history stays ordered.
type Conversation struct {
	mu       sync.Mutex
	provider Provider
	system   Message
	history  []Message
	maxTurns int
}

// NewConversation wraps provider with the default persona and history bounds.
func NewConversation(provider Provider, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		provider: provider,
		system:   Message{Role: RoleSystem, Content: DefaultPersona},
		maxTurns: defaultMaxTurns,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Converse sends the user's text with the accumulated history and returns the
// assistant's reply. A failed completion leaves the history unchanged so the
// turn can simply be retried.
func (c *Conversation) Converse(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]Message, 0, len(c.history)+2)
	messages = append(messages, c.system)
	messages = append(messages, c.history...)
	messages = append(messages, Message{Role: RoleUser, Content: text})

	reply, err := c.provider.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}

	c.history = append(c.history,
		Message{Role: RoleUser, Content: text},
		Message{Role: RoleAssistant, Content: reply},
	)
	if excess := len(c.history)/2 - c.maxTurns; excess > 0 {
		c.history = c.history[excess*2:]
	}
	return reply, nil
}

// Reset clears the history, keeping the persona.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a snapshot of the exchanges so far, excluding the system
// prompt.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history...)
}
