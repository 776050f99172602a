// Package llm defines the Provider interface for large language model
// backends and the stateful Conversation that the voice loop talks to.
//
// Provider is the thin completion surface: one ordered message list in, one
// assistant reply out. Conversation layers the assistant persona and rolling
// history on top, so backends stay stateless and trivially swappable.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message roles. Providers map these to their native role vocabulary.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation history.
type Message struct {
	Role    string
	Content string
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends the ordered message list to the model and returns the
	// assistant's reply text. Implementations must propagate ctx cancellation
	// promptly.
	Complete(ctx context.Context, messages []Message) (string, error)
}
