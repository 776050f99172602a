// Package chat defines the text chat surfaces of the agent.
//
// An [Adapter] connects one chat platform (Discord DMs and mentions, Slack
// Socket Mode) to the same dialogue collaborator the voice loop talks to.
// Adapters are text only; voice stays on the local mic and speaker pipeline.
package chat

import "context"

// Dialoguer produces a reply for one incoming message. The voice loop and
// every chat adapter share a single implementation so the agent has one
// conversation memory.
type Dialoguer interface {
	Converse(ctx context.Context, text string) (string, error)
}

// Adapter is one connected chat platform.
type Adapter interface {
	// Name identifies the adapter in logs ("discord", "slack").
	Name() string

	// Run connects to the platform and serves messages until ctx is
	// cancelled or the connection fails fatally.
	Run(ctx context.Context) error

	// Close disconnects. Idempotent and safe to call during Run.
	Close() error
}

// SplitMessage cuts text into pieces of at most limit runes, preferring to
// break at a newline and falling back to a space. Platforms cap message
// length (Discord at 2000 characters), so long replies are sent as a
// sequence.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		if cut == limit {
			for i := limit - 1; i > limit/2; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && (runes[0] == '\n' || runes[0] == ' ') {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
